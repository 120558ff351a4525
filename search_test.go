package collect

import "testing"

func TestCmp_KindOrdering(t *testing.T) {
	if Cmp(Nil, IntValue(0)) >= 0 {
		t.Fatalf("nil should sort before int")
	}
	if Cmp(IntValue(1), IntValue(2)) >= 0 {
		t.Fatalf("1 should sort before 2")
	}
	if Cmp(strv("a"), strv("b")) >= 0 {
		t.Fatalf("\"a\" should sort before \"b\"")
	}
}

func TestSearch_HitAndMiss(t *testing.T) {
	buf := []Value{IntValue(1), IntValue(3), IntValue(5), IntValue(7)}

	if idx := Search(IntValue(3), buf, len(buf), 1, false); idx != 1 {
		t.Fatalf("search(3) = %d, wanted 1", idx)
	}
	if idx := Search(IntValue(4), buf, len(buf), 1, false); idx != -1 {
		t.Fatalf("search(4) = %d, wanted -1", idx)
	}
	if idx := Search(IntValue(4), buf, len(buf), 1, true); idx != 2 {
		t.Fatalf("search(4, place) = %d, wanted insertion index 2", idx)
	}
	if idx := Search(IntValue(0), buf, len(buf), 1, true); idx != 0 {
		t.Fatalf("search(0, place) = %d, wanted 0", idx)
	}
	if idx := Search(IntValue(8), buf, len(buf), 1, true); idx != len(buf) {
		t.Fatalf("search(8, place) = %d, wanted %d", idx, len(buf))
	}
}

// Two distinct collection handles sharing a generation tag (the
// tag-collision scenario spec.md §4.2 calls out) must still be told
// apart by Search's bounded identity probe.
func TestSearch_TagCollisionIdentityProbe(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)

	a := intArray(rt, ds, 1)
	b := intArray(rt, ds, 1)
	// Force a tag collision: give b the same cached generation tag as a.
	va := collValue(KindArray, a)
	vb := Value{Kind: KindArray, Coll: b, collGen: va.collGen}

	buf := []Value{va, vb}
	sortValues(buf, 1)

	if idx := Search(vb, buf, len(buf), 1, false); idx < 0 || buf[idx].Coll != b {
		t.Fatalf("search for b by identity returned %d, wanted b's slot", idx)
	}
	if idx := Search(va, buf, len(buf), 1, false); idx < 0 || buf[idx].Coll != a {
		t.Fatalf("search for a by identity returned %d, wanted a's slot", idx)
	}
}

func TestSearch_StrideTwo(t *testing.T) {
	pairs := []Value{strv("a"), IntValue(1), strv("b"), IntValue(2), strv("c"), IntValue(3)}
	if idx := Search(strv("b"), pairs, len(pairs), 2, false); idx != 2 {
		t.Fatalf("search(b) = %d, wanted 2", idx)
	}
	if idx := Search(strv("bb"), pairs, len(pairs), 2, true); idx != 4 {
		t.Fatalf("search(bb, place) = %d, wanted 4", idx)
	}
}
