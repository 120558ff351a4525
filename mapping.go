package collect

// NewMapping creates an empty mapping (spec.md §4.8's map_new — no
// size argument, unlike arrays, since a mapping grows through index
// assignment rather than up-front allocation).
func (rt *Runtime) NewMapping(ds *Dataspace) Value {
	c := rt.alloc(ds, KindMapping, 0)
	return collValue(KindMapping, c)
}

func (rt *Runtime) isDestructedMapEntry(v Value) bool {
	return rt.isDestructedEntry(v)
}

// mergeSortedPairs linearly merges two (key,value)-pair runs, both
// already sorted by key, into one sorted run. A key collision that
// isn't a collection tag-collision (§4.2) is the identical-indices
// error §4.6 calls for; a genuine tag-collision keeps both pairs.
func mergeSortedPairs(existing, adds []Value) ([]Value, error) {
	out := make([]Value, 0, len(existing)+len(adds))
	ei, ai := 0, 0
	for ei < len(existing) && ai < len(adds) {
		c := Cmp(existing[ei], adds[ai])
		switch {
		case c < 0:
			out = append(out, existing[ei], existing[ei+1])
			ei += 2
		case c > 0:
			out = append(out, adds[ai], adds[ai+1])
			ai += 2
		default:
			if isCollKind(existing[ei].Kind) && existing[ei].Coll != adds[ai].Coll {
				out = append(out, existing[ei], existing[ei+1])
				ei += 2
				continue
			}
			return nil, errf(ErrIdenticalIndices, "identical indices in mapping")
		}
	}
	for ; ei < len(existing); ei += 2 {
		out = append(out, existing[ei], existing[ei+1])
	}
	for ; ai < len(adds); ai += 2 {
		out = append(out, adds[ai], adds[ai+1])
	}
	return out, nil
}

// dehash folds a mapping's overlay into its sorted array (merge) and/or
// scrubs destructed references from both (clean), per spec.md §4.6.
//
// Simplification (see DESIGN.md): the overlay here only ever holds
// entries not yet folded into elts — once merge runs, folded entries
// are dropped from the overlay rather than kept as an add=false lookup
// cache. This still satisfies every invariant §3.2/§3.3/§4.6 state
// (hashmod=false, no add-entries survive); it just forgoes the
// original's O(1)-repeat-lookup optimisation for already-merged keys.
func (rt *Runtime) dehash(ds *Dataspace, c *Collection, merge, clean bool) error {
	if !merge && !clean {
		return nil
	}

	if clean {
		if c.Elts != nil {
			for i := 0; i+1 < len(c.Elts); i += 2 {
				key, val := c.Elts[i], c.Elts[i+1]
				if rt.isDestructedMapEntry(key) || rt.isDestructedMapEntry(val) {
					rt.host.AssignElt(ds, c, &c.Elts[i], Nil)
					rt.host.AssignElt(ds, c, &c.Elts[i+1], Nil)
				}
			}
		}
		if c.Hashed != nil {
			c.Hashed.forEach(func(e *overlayEntry) {
				if rt.isDestructedMapEntry(e.idx) || rt.isDestructedMapEntry(e.val) {
					e.idx, e.val = Nil, Nil
				}
			})
		}
		c.ODCount = rt.odcount
	}

	if merge {
		var adds []Value
		if c.Hashed != nil {
			c.Hashed.forEach(func(e *overlayEntry) {
				if e.add {
					adds = append(adds, e.idx, e.val)
				}
			})
		}
		sortValues(adds, 2)

		merged, err := mergeSortedPairs(c.Elts, adds)
		if err != nil {
			return err
		}

		if clean {
			// compact out the Nil placeholders the scrub above left behind.
			compacted := merged[:0]
			for i := 0; i+1 < len(merged); i += 2 {
				if merged[i].Kind == KindNil && merged[i+1].Kind == KindNil {
					continue
				}
				compacted = append(compacted, merged[i], merged[i+1])
			}
			merged = compacted
		}

		if len(merged) == 0 {
			c.Elts = nil
		} else {
			c.Elts = merged
		}
		c.Size = len(c.Elts)
		c.Hashed = nil
		c.HashMod = false
	}

	return nil
}

// Compact runs clean+merge whenever hashmod is set or odcount is stale
// (spec.md §4.6's compact(m)).
func (rt *Runtime) Compact(ds *Dataspace, c *Collection) error {
	if !c.HashMod && c.ODCount == rt.odcount {
		return nil
	}
	return rt.dehash(ds, c, true, true)
}

func (rt *Runtime) deleteOverlayEntry(c *Collection, e *overlayEntry) {
	c.Hashed.delete(e)
	if c.Hashed.size == 0 {
		c.HashMod = false
	}
}

// mapRemoveArrayPair deletes the pair at array index idx (a key
// position, i.e. even), shifting the tail left by two and shrinking
// Size (spec.md §4.5 step 4: "deletion shifts the tail").
func (rt *Runtime) mapRemoveArrayPair(ds *Dataspace, c *Collection, idx int) {
	copy(c.Elts[idx:], c.Elts[idx+2:])
	c.Elts = c.Elts[:len(c.Elts)-2]
	c.Size = len(c.Elts)
	if len(c.Elts) == 0 {
		c.Elts = nil
	}
	rt.host.ChangeMap(c)
}

// MapIndex is the read/write path of spec.md §4.5: newval == nil reads
// key's current value; newval != nil writes (or, if it is Nil itself,
// deletes) it. verifyString, when non-nil, makes a write conditional
// on the current value being exactly that interned string (the
// optimistic string-mutation path).
func (rt *Runtime) MapIndex(ds *Dataspace, m *Collection, key Value, newval *Value, verifyString *InternedString) (Value, error) {
	mutating := newval != nil

	// Mirrors the original's own cross-plane-fold guard at the top of
	// map_index: `m->hashmod && (!THISPLANE(m->primary) ||
	// !SAMEPLANE(data, m->primary->data))`. A reader entering from a
	// plane other than the one m was last written under must see the
	// overlay folded into the sorted array first.
	if m.HashMod && (!rt.host.ThisPlane(ds, m.Primary) || !rt.host.SamePlane(ds, m.Primary.Dataspace)) {
		if err := rt.dehash(ds, m, true, false); err != nil {
			return Value{}, err
		}
	}

	if mutating {
		// Backup panics if handed an unclean mapping it hasn't already
		// snapshotted in this plane (see Backup's precondition); compact
		// first whenever m is about to be backed up into a plane other
		// than the one it's currently primary in.
		if m.HashMod && !rt.host.ThisPlane(ds, m.Primary) {
			if err := rt.Compact(ds, m); err != nil {
				return Value{}, err
			}
		}
		rt.Backup(ds.Plane, m)
	}

	if m.Hashed != nil {
		if e := m.Hashed.find(key); e != nil {
			if rt.isDestructedMapEntry(e.idx) || rt.isDestructedMapEntry(e.val) {
				// A hash hit only means "same object index"; the entry
				// itself may be a stale handle to a destructed object
				// that has since been reused. spec.md §4.4 lists mapping
				// index among the operations that observe live,
				// destruct-scrubbed semantics, so a stale hit is scrubbed
				// in place rather than served, on both reads and writes.
				// Every overlay entry here is an "add" entry (no array
				// part shadowed), so scrubbing it answers the lookup
				// outright instead of falling through to the array part.
				rt.deleteOverlayEntry(m, e)
				return Nil, nil
			} else if mutating {
				if verifyString != nil && !e.val.SameString(verifyString) {
					return Nil, nil
				}
				if newval.Kind == KindNil {
					old := e.val
					rt.deleteOverlayEntry(m, e)
					return old, nil
				}
				e.val = *newval
				return *newval, nil
			} else {
				return e.val, nil
			}
		}
	}

	if m.Elts != nil {
		idx := Search(key, m.Elts, len(m.Elts), 2, false)
		if idx >= 0 {
			if rt.isDestructedMapEntry(m.Elts[idx]) || rt.isDestructedMapEntry(m.Elts[idx+1]) {
				rt.mapRemoveArrayPair(ds, m, idx)
				return Nil, nil
			} else {
				old := m.Elts[idx+1]
				if mutating {
					if verifyString != nil && !old.SameString(verifyString) {
						return Nil, nil
					}
					if newval.Kind == KindNil {
						rt.mapRemoveArrayPair(ds, m, idx)
						return old, nil
					}
					rt.host.AssignElt(ds, m, &m.Elts[idx+1], *newval)
					return *newval, nil
				}
				return old, nil
			}
		}
	}

	if !mutating || newval.Kind == KindNil {
		return Nil, nil
	}

	pairs := len(m.Elts) / 2
	if m.Hashed != nil {
		pairs += m.Hashed.size
	}
	if pairs+1 > rt.maxSize {
		return Value{}, errf(ErrMappingTooLargeToGrow, "mapping too large to grow")
	}

	if m.Hashed == nil {
		m.Hashed = newHashOverlay()
	}
	m.Hashed.put(key, *newval, true)
	m.HashMod = true
	rt.host.ChangeMap(m)
	return *newval, nil
}

// MapSize returns the pair count, compacting first so hashmod/odcount
// staleness can't under-report it (spec.md §4.6).
func (rt *Runtime) MapSize(ds *Dataspace, m *Collection) (int, error) {
	if err := rt.Compact(ds, m); err != nil {
		return 0, err
	}
	return len(m.Elts) / 2, nil
}

// MapIndices returns a fresh array of m's keys, in sorted order.
func (rt *Runtime) MapIndices(ds *Dataspace, m *Collection) (Value, error) {
	if err := rt.Compact(ds, m); err != nil {
		return Value{}, err
	}
	n := len(m.Elts) / 2
	c := rt.alloc(ds, KindArray, n)
	for i := 0; i < n; i++ {
		v := m.Elts[i*2]
		rt.refValue(v)
		c.Elts[i] = v
	}
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// MapValues returns a fresh array of m's values, in key-sorted order.
func (rt *Runtime) MapValues(ds *Dataspace, m *Collection) (Value, error) {
	if err := rt.Compact(ds, m); err != nil {
		return Value{}, err
	}
	n := len(m.Elts) / 2
	c := rt.alloc(ds, KindArray, n)
	for i := 0; i < n; i++ {
		v := m.Elts[i*2+1]
		rt.refValue(v)
		c.Elts[i] = v
	}
	rt.host.RefImports(c)
	return collValue(KindArray, c), nil
}

// MapRange returns a fresh mapping holding the pairs whose key falls
// in [lo,hi] inclusive; either bound may be Nil to mean unbounded on
// that side (scenario 4 of spec.md §8: range(m,"b",nil) = {"b":2,"c":3}).
func (rt *Runtime) MapRange(ds *Dataspace, m *Collection, lo, hi Value) (Value, error) {
	if err := rt.Compact(ds, m); err != nil {
		return Value{}, err
	}
	start := 0
	if !lo.IsNil() {
		start = Search(lo, m.Elts, len(m.Elts), 2, true)
	}
	end := len(m.Elts)
	if !hi.IsNil() {
		idx := Search(hi, m.Elts, len(m.Elts), 2, true)
		if idx < len(m.Elts) && Cmp(m.Elts[idx], hi) == 0 {
			idx += 2
		}
		end = idx
	}
	if start > end {
		start = end
	}

	c := rt.alloc(ds, KindMapping, end-start)
	rt.copyRef(c.Elts, m.Elts[start:end])
	rt.host.RefImports(c)
	return collValue(KindMapping, c), nil
}
