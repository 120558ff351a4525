package collect

// MapAdd merges m1 and m2 (both compacted first): right side wins on
// key equality. On a tag-collision (comparator-equal keys, distinct
// identity — spec.md §4.2) the rest of m2's tag-equal run is searched
// for m1's own handle: if it is there, m2's entry wins as usual;
// otherwise both entries are kept.
func (rt *Runtime) MapAdd(ds *Dataspace, m1, m2 *Collection) (Value, error) {
	if err := rt.Compact(ds, m1); err != nil {
		return Value{}, err
	}
	if err := rt.Compact(ds, m2); err != nil {
		return Value{}, err
	}

	e1, e2 := m1.Elts, m2.Elts
	var out []Value
	i, j := 0, 0
	for i < len(e1) && j < len(e2) {
		c := Cmp(e1[i], e2[j])
		switch {
		case c < 0:
			out = append(out, e1[i], e1[i+1])
			i += 2
		case c > 0:
			out = append(out, e2[j], e2[j+1])
			j += 2
		default:
			if isCollKind(e1[i].Kind) && e1[i].Coll != e2[j].Coll {
				found := false
				for k := j + 2; k < len(e2) && Cmp(e1[i], e2[k]) == 0; k += 2 {
					if e2[k].Coll == e1[i].Coll {
						found = true
						break
					}
				}
				if !found {
					out = append(out, e1[i], e1[i+1])
				}
				i += 2
				continue
			}
			out = append(out, e2[j], e2[j+1])
			i += 2
			j += 2
		}
	}
	for ; i < len(e1); i += 2 {
		out = append(out, e1[i], e1[i+1])
	}
	for ; j < len(e2); j += 2 {
		out = append(out, e2[j], e2[j+1])
	}

	if len(out)/2 > rt.maxSize {
		return Value{}, errf(ErrMappingTooLargeToGrow, "mapping too large to grow")
	}

	c := rt.alloc(ds, KindMapping, len(out))
	rt.copyRef(c.Elts, out)
	rt.host.RefImports(c)
	return collValue(KindMapping, c), nil
}

// MapSub returns the pairs of m whose key has no equivalent in array a
// (m compacted first, a destruct-scrubbed and sorted for the lookup).
func (rt *Runtime) MapSub(ds *Dataspace, m, a *Collection) (Value, error) {
	if err := rt.Compact(ds, m); err != nil {
		return Value{}, err
	}
	keys, err := rt.scrubAndCopy(ds, a)
	if err != nil {
		return Value{}, err
	}
	sortValues(keys, 1)

	var out []Value
	for i := 0; i+1 < len(m.Elts); i += 2 {
		if Search(m.Elts[i], keys, len(keys), 1, false) < 0 {
			out = append(out, m.Elts[i], m.Elts[i+1])
		}
	}
	c := rt.alloc(ds, KindMapping, len(out))
	rt.copyRef(c.Elts, out)
	rt.host.RefImports(c)
	return collValue(KindMapping, c), nil
}

// MapIntersect returns the pairs of m whose key has an equivalent in
// array a.
func (rt *Runtime) MapIntersect(ds *Dataspace, m, a *Collection) (Value, error) {
	if err := rt.Compact(ds, m); err != nil {
		return Value{}, err
	}
	keys, err := rt.scrubAndCopy(ds, a)
	if err != nil {
		return Value{}, err
	}
	sortValues(keys, 1)

	var out []Value
	for i := 0; i+1 < len(m.Elts); i += 2 {
		if Search(m.Elts[i], keys, len(keys), 1, false) >= 0 {
			out = append(out, m.Elts[i], m.Elts[i+1])
		}
	}
	c := rt.alloc(ds, KindMapping, len(out))
	rt.copyRef(c.Elts, out)
	rt.host.RefImports(c)
	return collValue(KindMapping, c), nil
}
