package collect

import "sort"

// copyRef copies src into dst and takes a reference on every
// collection-kind value copied, mirroring the interpreter's i_copy
// primitive (spec.md §6) which every array-building operation in the
// original relies on to keep refcounts balanced.
func (rt *Runtime) copyRef(dst, src []Value) {
	for i, v := range src {
		if isCollKind(v.Kind) && v.Coll != nil {
			rt.Ref(v.Coll)
		}
		dst[i] = v
	}
}

func (rt *Runtime) refValue(v Value) {
	if isCollKind(v.Kind) && v.Coll != nil {
		rt.Ref(v.Coll)
	}
}

// isDestructedEntry reports whether v is a destructed Object, or a
// LightWeight whose own slot 0 (the object it wraps) is destructed
// (spec.md §4.4).
func (rt *Runtime) isDestructedEntry(v Value) bool {
	switch v.Kind {
	case KindObject:
		return rt.host.Destructed(v)
	case KindLightWeight:
		if v.Coll == nil || len(v.Coll.Elts) == 0 {
			return false
		}
		slot0 := v.Coll.Elts[0]
		return slot0.Kind == KindObject && rt.host.Destructed(slot0)
	default:
		return false
	}
}

// scrubAndCopy demand-loads c's elements and returns a working copy,
// scrubbing destructed-object entries to Nil in c's real buffer (via
// Host.AssignElt, so the write is undo-logged) when c.ODCount is
// behind the current destruct epoch. This is the one helper behind
// every copytmp call site in the original (arr_sub/arr_intersect/
// arr_setadd/arr_setxadd each inlined their own copy of this logic).
func (rt *Runtime) scrubAndCopy(ds *Dataspace, c *Collection) ([]Value, error) {
	elts, err := rt.host.GetElts(c)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(elts))
	if c.ODCount == rt.odcount {
		copy(out, elts)
		return out, nil
	}
	c.ODCount = rt.odcount
	for i, v := range elts {
		if rt.isDestructedEntry(v) {
			rt.host.AssignElt(ds, c, &c.Elts[i], Nil)
			v = Nil
		}
		out[i] = v
	}
	return out, nil
}

// valueRun adapts a flat []Value buffer, viewed in strides of step, to
// sort.Interface so the standard library's sort.Sort can order it by
// Cmp on the first value of every stride (step=2 sorts (key,value)
// pairs by key while keeping them paired).
type valueRun struct {
	buf  []Value
	step int
}

func (r valueRun) Len() int { return len(r.buf) / r.step }
func (r valueRun) Less(i, j int) bool {
	return Cmp(r.buf[i*r.step], r.buf[j*r.step]) < 0
}
func (r valueRun) Swap(i, j int) {
	ii, jj := i*r.step, j*r.step
	for k := 0; k < r.step; k++ {
		r.buf[ii+k], r.buf[jj+k] = r.buf[jj+k], r.buf[ii+k]
	}
}

func sortValues(buf []Value, step int) {
	sort.Sort(valueRun{buf, step})
}

// ArrIndex validates l as an index into c (spec.md §4's arr_index).
func ArrIndex(c *Collection, l int) (int, error) {
	if l < 0 || l >= c.Size {
		return 0, errf(ErrArrayIndexOutOfRange, "array index out of range: %d not in [0,%d)", l, c.Size)
	}
	return l, nil
}

// ArrCkRange validates a [l1,l2] subrange of c.
func ArrCkRange(c *Collection, l1, l2 int) error {
	if l1 < 0 || l1 > l2+1 || l2 >= c.Size {
		return errf(ErrInvalidArrayRange, "invalid array range [%d,%d] for size %d", l1, l2, c.Size)
	}
	return nil
}

// ArrRange returns a fresh array holding c[l1..l2] inclusive.
func (rt *Runtime) ArrRange(ds *Dataspace, c *Collection, l1, l2 int) (Value, error) {
	if err := ArrCkRange(c, l1, l2); err != nil {
		return Value{}, err
	}
	elts, err := rt.host.GetElts(c)
	if err != nil {
		return Value{}, err
	}
	n := l2 - l1 + 1
	out := rt.alloc(ds, KindArray, n)
	rt.copyRef(out.Elts, elts[l1:l1+n])
	rt.host.RefImports(out)
	return collValue(KindArray, out), nil
}

// ArrAdd concatenates a1 and a2 (bag union, order preserved).
func (rt *Runtime) ArrAdd(ds *Dataspace, a1, a2 *Collection) (Value, error) {
	size := a1.Size + a2.Size
	if size > rt.maxSize {
		return Value{}, errf(ErrArrayTooLarge, "array too large: %d > %d", size, rt.maxSize)
	}
	v1, err := rt.host.GetElts(a1)
	if err != nil {
		return Value{}, err
	}
	v2, err := rt.host.GetElts(a2)
	if err != nil {
		return Value{}, err
	}
	c := rt.alloc(ds, KindArray, size)
	rt.copyRef(c.Elts[:a1.Size], v1)
	rt.copyRef(c.Elts[a1.Size:], v2)
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// ArrSub computes the multiset difference a1 - a2: elements of a1
// absent from a2, in a1's order.
func (rt *Runtime) ArrSub(ds *Dataspace, a1, a2 *Collection) (Value, error) {
	if a2.Size == 0 {
		raw, err := rt.host.GetElts(a1)
		if err != nil {
			return Value{}, err
		}
		c := rt.alloc(ds, KindArray, a1.Size)
		rt.copyRef(c.Elts, raw)
		rt.host.RefImports(c)
		return collValue(KindArray, c), nil
	}

	v2, err := rt.scrubAndCopy(ds, a2)
	if err != nil {
		return Value{}, err
	}
	sortValues(v2, 1)

	v1, err := rt.scrubAndCopy(ds, a1)
	if err != nil {
		return Value{}, err
	}

	out := make([]Value, 0, len(v1))
	for _, v := range v1 {
		if Search(v, v2, len(v2), 1, false) < 0 {
			out = append(out, v)
		}
	}

	c := rt.alloc(ds, KindArray, len(out))
	rt.copyRef(c.Elts, out)
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// ArrIntersect computes A - (A - B): elements of a1 whose equivalent
// appears in a2, in a1's order.
func (rt *Runtime) ArrIntersect(ds *Dataspace, a1, a2 *Collection) (Value, error) {
	if a1.Size == 0 || a2.Size == 0 {
		c := rt.alloc(ds, KindArray, 0)
		return collValue(KindArray, c), nil
	}

	v2, err := rt.scrubAndCopy(ds, a2)
	if err != nil {
		return Value{}, err
	}
	sortValues(v2, 1)

	v1, err := rt.scrubAndCopy(ds, a1)
	if err != nil {
		return Value{}, err
	}

	out := make([]Value, 0, len(v1))
	for _, v := range v1 {
		if Search(v, v2, len(v2), 1, false) >= 0 {
			out = append(out, v)
		}
	}

	c := rt.alloc(ds, KindArray, len(out))
	rt.copyRef(c.Elts, out)
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// ArrSetAdd computes A + (B - A): a1 extended with elements of a2 not
// already present, a1's order preserved then the addition appended.
func (rt *Runtime) ArrSetAdd(ds *Dataspace, a1, a2 *Collection) (Value, error) {
	if a1.Size == 0 {
		raw, err := rt.host.GetElts(a2)
		if err != nil {
			return Value{}, err
		}
		c := rt.alloc(ds, KindArray, a2.Size)
		rt.copyRef(c.Elts, raw)
		rt.host.RefImports(c)
		return collValue(KindArray, c), nil
	}
	if a2.Size == 0 {
		raw, err := rt.host.GetElts(a1)
		if err != nil {
			return Value{}, err
		}
		c := rt.alloc(ds, KindArray, a1.Size)
		rt.copyRef(c.Elts, raw)
		rt.host.RefImports(c)
		return collValue(KindArray, c), nil
	}

	v1, err := rt.scrubAndCopy(ds, a1)
	if err != nil {
		return Value{}, err
	}
	ordered1 := make([]Value, len(v1))
	copy(ordered1, v1)
	sortValues(v1, 1)

	v2, err := rt.scrubAndCopy(ds, a2)
	if err != nil {
		return Value{}, err
	}

	var extra []Value
	for _, v := range v2 {
		if Search(v, v1, len(v1), 1, false) < 0 {
			extra = append(extra, v)
		}
	}

	total := len(ordered1) + len(extra)
	if total > rt.maxSize {
		return Value{}, errf(ErrArrayTooLarge, "array too large: %d > %d", total, rt.maxSize)
	}

	c := rt.alloc(ds, KindArray, total)
	rt.copyRef(c.Elts[:len(ordered1)], ordered1)
	rt.copyRef(c.Elts[len(ordered1):], extra)
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// ArrSetXAdd computes (A - B) + (B - A): the symmetric difference, with
// a1's order preserved for its half and a2's order preserved for its.
func (rt *Runtime) ArrSetXAdd(ds *Dataspace, a1, a2 *Collection) (Value, error) {
	if a1.Size == 0 {
		raw, err := rt.host.GetElts(a2)
		if err != nil {
			return Value{}, err
		}
		c := rt.alloc(ds, KindArray, a2.Size)
		rt.copyRef(c.Elts, raw)
		rt.host.RefImports(c)
		return collValue(KindArray, c), nil
	}
	if a2.Size == 0 {
		raw, err := rt.host.GetElts(a1)
		if err != nil {
			return Value{}, err
		}
		c := rt.alloc(ds, KindArray, a1.Size)
		rt.copyRef(c.Elts, raw)
		rt.host.RefImports(c)
		return collValue(KindArray, c), nil
	}

	v1, err := rt.scrubAndCopy(ds, a1) // a1's order, scrubbed
	if err != nil {
		return Value{}, err
	}
	v2, err := rt.scrubAndCopy(ds, a2) // a2's order, scrubbed
	if err != nil {
		return Value{}, err
	}

	sorted2 := make([]Value, len(v2))
	copy(sorted2, v2)
	sortValues(sorted2, 1)

	var onlyA, common []Value
	for _, v := range v1 {
		if Search(v, sorted2, len(sorted2), 1, false) < 0 {
			onlyA = append(onlyA, v)
		} else {
			common = append(common, v)
		}
	}
	sortValues(common, 1)

	var onlyB []Value
	for _, v := range v2 {
		if Search(v, common, len(common), 1, false) < 0 {
			onlyB = append(onlyB, v)
		}
	}

	total := len(onlyA) + len(onlyB)
	if total > rt.maxSize {
		return Value{}, errf(ErrArrayTooLarge, "array too large: %d > %d", total, rt.maxSize)
	}

	c := rt.alloc(ds, KindArray, total)
	rt.copyRef(c.Elts[:len(onlyA)], onlyA)
	rt.copyRef(c.Elts[len(onlyA):], onlyB)
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}
