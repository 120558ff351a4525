package collect

// Collection is the header shared by arrays, mappings and light-weight
// objects (spec.md §3.2). Kind selects which of the three it is; only
// mappings ever populate Hashed/HashMod.
type Collection struct {
	Kind    Kind
	Size    int
	Elts    []Value
	Hashed  *hashOverlay
	HashMod bool
	ODCount uint64
	Tag     uint32
	Ref     int
	Primary *PlaneLocal

	Prev, Next *Collection // sibling list within the owning Dataspace

	destroyNext *Collection // link used only while queued for iterative release
}

// alloc creates a bare collection header linked at the head of ds's
// sibling list, with ref=1 (spec.md §3.5). size > 0 allocates an
// elements buffer pre-filled with Nil; size == 0 leaves Elts nil, per
// the "elts null when empty" invariant of §3.2.
func (rt *Runtime) alloc(ds *Dataspace, kind Kind, size int) *Collection {
	c := &Collection{
		Kind:    kind,
		Size:    size,
		Tag:     rt.nextTag(),
		ODCount: rt.odcount,
		Ref:     1,
		Primary: &ds.Plane.alocal,
	}
	if size > 0 {
		c.Elts = make([]Value, size)
	}
	c.Prev = &ds.alist
	c.Next = ds.alist.Next
	c.Next.Prev = c
	ds.alist.Next = c
	return c
}

// NewArray creates a new array of the given size, filled with Nil
// (spec.md §4.8's arr_new/arr_ext_new combined — Go's zero Value being
// Nil makes the "pre-filled" extension-interface variant the only one
// worth exposing).
func (rt *Runtime) NewArray(ds *Dataspace, size int) (Value, error) {
	if size > rt.maxSize {
		return Value{}, errf(ErrArrayTooLarge, "array too large (%d > %d)", size, rt.maxSize)
	}
	c := rt.alloc(ds, KindArray, size)
	return collValue(KindArray, c), nil
}

// Ref takes an additional reference on c (arr_ref in the original).
func (rt *Runtime) Ref(c *Collection) {
	c.Ref++
}

// Unref releases a reference on c. When the count reaches zero, c is
// unlinked from its dataspace's sibling list and its contents are
// released; see unref for the bounded-recursion mechanics spec.md §9
// calls for.
func (rt *Runtime) Unref(c *Collection) {
	rt.unref(c)
}

func (c *Collection) unlink() {
	c.Prev.Next = c.Next
	c.Next.Prev = c.Prev
	c.Prev = nil
	c.Next = nil
}

// unref is the iterative-release core. Rather than recursing into
// nested collections (which could blow the Go stack on a deep or
// cyclic object graph), a destroy pass in progress enqueues further
// victims onto rt.destroyQueue and the outermost caller drains it.
func (rt *Runtime) unref(c *Collection) {
	c.Ref--
	if c.Ref != 0 {
		return
	}
	c.unlink()

	if rt.destroying {
		c.destroyNext = rt.destroyQueue
		rt.destroyQueue = c
		return
	}

	rt.destroying = true
	rt.destroyQueue = c
	for rt.destroyQueue != nil {
		victim := rt.destroyQueue
		rt.destroyQueue = victim.destroyNext
		victim.destroyNext = nil
		rt.releaseContents(victim)
	}
	rt.destroying = false
}

// releaseContents drops c's own references into its element buffer and
// overlay. Strings and objects need no bookkeeping here: strings are
// Go-GC'd memory and objects are owned by the (external) object layer,
// unlike the original's manual str_del/refcounting.
func (rt *Runtime) releaseContents(c *Collection) {
	for _, v := range c.Elts {
		rt.unrefValue(v)
	}
	c.Elts = nil
	if c.Hashed != nil {
		c.Hashed.forEach(func(e *overlayEntry) {
			if e.add {
				rt.unrefValue(e.idx)
				rt.unrefValue(e.val)
			}
		})
		c.Hashed = nil
	}
}

func (rt *Runtime) unrefValue(v Value) {
	if isCollKind(v.Kind) && v.Coll != nil {
		rt.unref(v.Coll)
	}
}
