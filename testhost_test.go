package collect

// testHost is a minimal Host for exercising the core in isolation,
// playing the same role the teacher's setup(t, schema) helper plays
// for its own tests: no persistence, no swap, just enough bookkeeping
// (a live update counter per object index) to drive the scrub paths.
type testHost struct {
	live map[int32]uint32
}

func newTestHost() *testHost {
	return &testHost{live: make(map[int32]uint32)}
}

func (h *testHost) register(index int32, count uint32) { h.live[index] = count }
func (h *testHost) destroy(index int32)                { h.live[index]++ }

func (h *testHost) GetElts(c *Collection) ([]Value, error) { return c.Elts, nil }

func (h *testHost) AssignElt(ds *Dataspace, c *Collection, slot *Value, newValue Value) {
	*slot = newValue
}

func (h *testHost) ChangeMap(c *Collection) {}
func (h *testHost) RefImports(c *Collection) {}

// CommitArr always requests forwarding, so tests can exercise the
// backup-merge-forwarding path (spec.md §4.9/§9).
func (h *testHost) CommitArr(c *Collection, current, original *Plane) bool { return true }
func (h *testHost) DiscardArr(c *Collection, original *Plane)              {}

func (h *testHost) ThisPlane(ds *Dataspace, local *PlaneLocal) bool { return local.Plane == ds.Plane }
func (h *testHost) SamePlane(a, b *Dataspace) bool                  { return a.Plane == b.Plane }

func (h *testHost) Destructed(v Value) bool {
	if v.Kind != KindObject {
		return false
	}
	live, ok := h.live[v.Obj.Index]
	return !ok || live != v.Obj.Count
}

func (h *testHost) NumVariables(obj ObjectRef) (int, error) { return 2, nil }

func (h *testHost) InitVariables(ds *Dataspace, c *Collection, obj ObjectRef) error {
	for i := 2; i < len(c.Elts); i++ {
		c.Elts[i] = Nil
	}
	return nil
}

func newTestRuntime() (*Runtime, *testHost) {
	h := newTestHost()
	return NewRuntime(64, h), h
}

func intArray(rt *Runtime, ds *Dataspace, vals ...int32) *Collection {
	v, err := rt.NewArray(ds, len(vals))
	if err != nil {
		panic(err)
	}
	c := v.Coll
	for i, n := range vals {
		c.Elts[i] = IntValue(n)
	}
	return c
}

func intsOf(vs []Value) []int32 {
	out := make([]int32, len(vs))
	for i, v := range vs {
		out[i] = v.Int
	}
	return out
}
