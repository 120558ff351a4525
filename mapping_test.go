package collect

import "testing"

func strv(s string) Value { return StringValue(&InternedString{Text: s}) }

// scenario 3 of spec.md §8.
func TestMapIndex_InsertSizeAndDelete(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll

	one := IntValue(1)
	if _, err := rt.MapIndex(ds, m, strv("k"), &one, nil); err != nil {
		t.Fatal(err)
	}

	size, err := rt.MapSize(ds, m)
	if err != nil {
		t.Fatal(err)
	}
	if size != 1 {
		t.Fatalf("size = %d, wanted 1", size)
	}

	indices, err := rt.MapIndices(ds, m)
	if err != nil {
		t.Fatal(err)
	}
	if indices.Coll.Size != 1 || indices.Coll.Elts[0].Str.Text != "k" {
		t.Fatalf("indices = %+v, wanted [\"k\"]", indices.Coll.Elts)
	}

	values, err := rt.MapValues(ds, m)
	if err != nil {
		t.Fatal(err)
	}
	if values.Coll.Size != 1 || values.Coll.Elts[0].Int != 1 {
		t.Fatalf("values = %+v, wanted [1]", values.Coll.Elts)
	}

	if _, err := rt.MapIndex(ds, m, strv("k"), &Nil, nil); err != nil {
		t.Fatal(err)
	}
	size, err = rt.MapSize(ds, m)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("size after delete = %d, wanted 0", size)
	}
	if m.Elts != nil {
		t.Fatalf("elts after delete = %v, wanted nil", m.Elts)
	}
}

// scenario 4 of spec.md §8.
func TestMapRange(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll

	for k, v := range map[string]int32{"a": 1, "b": 2, "c": 3} {
		n := IntValue(v)
		if _, err := rt.MapIndex(ds, m, strv(k), &n, nil); err != nil {
			t.Fatal(err)
		}
	}

	r1, err := rt.MapRange(ds, m, strv("a"), strv("b"))
	if err != nil {
		t.Fatal(err)
	}
	if got := pairKeys(r1.Coll.Elts); !stringsEqual(got, []string{"a", "b"}) {
		t.Fatalf("range(a,b) keys = %v, wanted [a b]", got)
	}

	r2, err := rt.MapRange(ds, m, strv("b"), Nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := pairKeys(r2.Coll.Elts); !stringsEqual(got, []string{"b", "c"}) {
		t.Fatalf("range(b,nil) keys = %v, wanted [b c]", got)
	}
}

func TestMapIndex_ValueReplace(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll

	one := IntValue(1)
	if _, err := rt.MapIndex(ds, m, strv("k"), &one, nil); err != nil {
		t.Fatal(err)
	}
	two := IntValue(2)
	got, err := rt.MapIndex(ds, m, strv("k"), &two, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int != 2 {
		t.Fatalf("got %v, wanted 2", got)
	}

	read, err := rt.MapIndex(ds, m, strv("k"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if read.Int != 2 {
		t.Fatalf("read %v, wanted 2", read)
	}
}

func TestMapCompact_Invariants(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll

	for i := int32(0); i < 20; i++ {
		v := IntValue(i)
		if _, err := rt.MapIndex(ds, m, IntValue(i), &v, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := rt.Compact(ds, m); err != nil {
		t.Fatal(err)
	}
	if m.HashMod {
		t.Fatalf("hashmod still set after compact")
	}
	for i := 0; i+3 < len(m.Elts); i += 2 {
		if Cmp(m.Elts[i], m.Elts[i+2]) >= 0 {
			t.Fatalf("elts not strictly sorted at %d", i)
		}
	}
}

// A mapping key (or value) that goes stale between insertion and
// lookup — the object it names was destroyed and its index reused —
// must be scrubbed on the next index, whether the index is a read or
// a write, per spec.md §4.4 listing mapping index among the operations
// that observe live, destruct-scrubbed semantics.
func TestMapIndex_ScrubsStaleObjectKeyOnRead(t *testing.T) {
	rt, h := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll
	h.register(1, 0)

	key := ObjectValue(ObjectRef{Index: 1, Count: 0})
	val := IntValue(42)
	if _, err := rt.MapIndex(ds, m, key, &val, nil); err != nil {
		t.Fatal(err)
	}

	h.destroy(1)
	rt.BumpODCount()

	got, err := rt.MapIndex(ds, m, key, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindNil {
		t.Fatalf("read of stale key = %v, wanted Nil", got)
	}
	size, err := rt.MapSize(ds, m)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("size after stale read = %d, wanted 0 (scrubbed)", size)
	}
}

func TestMapIndex_ScrubsStaleObjectKeyInHashOverlay(t *testing.T) {
	rt, h := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll
	h.register(1, 0)

	key := ObjectValue(ObjectRef{Index: 1, Count: 0})
	val := IntValue(7)
	// writes go through m.Hashed until the next Compact, so this key
	// never leaves the overlay before it goes stale.
	if _, err := rt.MapIndex(ds, m, key, &val, nil); err != nil {
		t.Fatal(err)
	}
	if m.Hashed == nil || m.Hashed.size != 1 {
		t.Fatalf("expected the write to land in the hash overlay")
	}

	h.destroy(1)
	rt.BumpODCount()

	replacement := IntValue(8)
	got, err := rt.MapIndex(ds, m, key, &replacement, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindNil {
		t.Fatalf("write-hit on stale overlay key = %v, wanted Nil (treated as not found)", got)
	}
}

func TestMapIndex_ScrubsStaleObjectKeyInArrayPart(t *testing.T) {
	rt, h := newTestRuntime()
	ds := NewDataspace(1)
	m := rt.NewMapping(ds).Coll
	h.register(1, 0)

	key := ObjectValue(ObjectRef{Index: 1, Count: 0})
	val := IntValue(7)
	if _, err := rt.MapIndex(ds, m, key, &val, nil); err != nil {
		t.Fatal(err)
	}
	if err := rt.Compact(ds, m); err != nil {
		t.Fatal(err)
	}
	if m.Hashed != nil {
		t.Fatalf("expected the pair to be folded into the sorted array")
	}

	h.destroy(1)
	rt.BumpODCount()

	got, err := rt.MapIndex(ds, m, key, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindNil {
		t.Fatalf("read of stale array-part key = %v, wanted Nil", got)
	}
	if len(m.Elts) != 0 {
		t.Fatalf("elts after scrub = %v, wanted empty", m.Elts)
	}
}

func pairKeys(elts []Value) []string {
	out := make([]string, 0, len(elts)/2)
	for i := 0; i+1 < len(elts); i += 2 {
		out = append(out, elts[i].Str.Text)
	}
	return out
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
