package collect

// NewLightWeight builds a light-weight object for obj (spec.md §4.8):
// a buffer of nvariables+2 slots, obj in slot 0, its update counter
// Float-encoded in slot 1, and slots 2..n initialised by the
// persistent layer.
func (rt *Runtime) NewLightWeight(ds *Dataspace, obj ObjectRef) (Value, error) {
	nvars, err := rt.host.NumVariables(obj)
	if err != nil {
		return Value{}, err
	}

	c := rt.alloc(ds, KindLightWeight, nvars+2)
	c.Elts[0] = ObjectValue(obj)
	c.Elts[1] = FloatVal(FloatFromUpdateCounter(obj.Count))

	if err := rt.host.InitVariables(ds, c, obj); err != nil {
		return Value{}, err
	}

	return collValue(KindLightWeight, c), nil
}

// CopyLightWeight shallow-copies a's buffer with refs taken on every
// collection-kind element, under a fresh generation tag so a structural
// comparison can tell the copy apart from the original (spec.md §4.8).
func (rt *Runtime) CopyLightWeight(ds *Dataspace, a *Collection) (Value, error) {
	elts, err := rt.host.GetElts(a)
	if err != nil {
		return Value{}, err
	}

	c := rt.alloc(ds, KindLightWeight, a.Size)
	rt.copyRef(c.Elts, elts)
	rt.host.RefImports(c)
	return collValue(KindLightWeight, c), nil
}
