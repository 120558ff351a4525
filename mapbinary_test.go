package collect

import "testing"

func buildMapping(t *testing.T, rt *Runtime, ds *Dataspace, pairs map[string]int32) *Collection {
	t.Helper()
	m := rt.NewMapping(ds).Coll
	for k, v := range pairs {
		n := IntValue(v)
		if _, err := rt.MapIndex(ds, m, strv(k), &n, nil); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}
	return m
}

func TestMapAdd_RightSideWinsOnKeyEquality(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)

	m1 := buildMapping(t, rt, ds, map[string]int32{"a": 1, "b": 2})
	m2 := buildMapping(t, rt, ds, map[string]int32{"b": 99, "c": 3})

	v, err := rt.MapAdd(ds, m1, m2)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int32{}
	for i := 0; i+1 < len(v.Coll.Elts); i += 2 {
		got[v.Coll.Elts[i].Str.Text] = v.Coll.Elts[i+1].Int
	}
	want := map[string]int32{"a": 1, "b": 99, "c": 3}
	for k, wv := range want {
		if got[k] != wv {
			t.Fatalf("MapAdd()[%s] = %d, wanted %d", k, got[k], wv)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("MapAdd() has %d keys, wanted %d", len(got), len(want))
	}
}

func TestMapSub_RemovesKeysInArray(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)

	m := buildMapping(t, rt, ds, map[string]int32{"a": 1, "b": 2, "c": 3})
	arr, err := rt.NewArray(ds, 1)
	if err != nil {
		t.Fatal(err)
	}
	a := arr.Coll
	a.Elts[0] = strv("b")

	v, err := rt.MapSub(ds, m, a)
	if err != nil {
		t.Fatal(err)
	}
	if v.Coll.Size != 4 { // 2 remaining pairs
		t.Fatalf("MapSub result size = %d, wanted 4", v.Coll.Size)
	}
	for i := 0; i+1 < len(v.Coll.Elts); i += 2 {
		if v.Coll.Elts[i].Str.Text == "b" {
			t.Fatalf("MapSub result still contains subtracted key \"b\"")
		}
	}
}

func TestMapIntersect_KeepsOnlyKeysInArray(t *testing.T) {
	rt, _ := newTestRuntime()
	ds := NewDataspace(1)

	m := buildMapping(t, rt, ds, map[string]int32{"a": 1, "b": 2, "c": 3})
	v0, err := rt.NewArray(ds, 2)
	if err != nil {
		t.Fatal(err)
	}
	a := v0.Coll
	a.Elts[0] = strv("a")
	a.Elts[1] = strv("c")

	v, err := rt.MapIntersect(ds, m, a)
	if err != nil {
		t.Fatal(err)
	}
	if v.Coll.Size != 4 {
		t.Fatalf("MapIntersect result size = %d, wanted 4", v.Coll.Size)
	}
	for i := 0; i+1 < len(v.Coll.Elts); i += 2 {
		k := v.Coll.Elts[i].Str.Text
		if k != "a" && k != "c" {
			t.Fatalf("MapIntersect result contains unexpected key %q", k)
		}
	}
}
