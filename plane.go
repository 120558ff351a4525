package collect

// PlaneLocal is the allocation-local record a Collection's Primary
// field points at: it is what lets a collection find both "its" plane
// and "its" dataspace with one pointer (spec.md §3.2's `primary`).
type PlaneLocal struct {
	Plane     *Plane
	Dataspace *Dataspace
}

// Plane is a logical transaction frame (spec.md's Plane in the
// GLOSSARY): mutations are recorded against it via Backup, then either
// committed — merged into Parent or made permanent — or discarded.
type Plane struct {
	Parent *Plane
	alocal PlaneLocal
	chunk  []*backupRecord
}

// Dataspace is the minimal in-core shell around the persistent
// object/variable layer spec.md §1 puts out of scope: just enough
// state (a current Plane, a sibling list of live collections) for the
// core's own bookkeeping. Everything else a real Dataspace would own
// (objects, variables, swap storage) lives behind Host.
type Dataspace struct {
	ID    int
	Plane *Plane
	alist Collection // sentinel node; only Prev/Next are meaningful
}

// NewDataspace creates a dataspace with an empty sibling list and a
// fresh root plane.
func NewDataspace(id int) *Dataspace {
	ds := &Dataspace{ID: id}
	ds.alist.Prev = &ds.alist
	ds.alist.Next = &ds.alist
	ds.Plane = &Plane{}
	ds.Plane.alocal = PlaneLocal{Plane: ds.Plane, Dataspace: ds}
	return ds
}

// EnterPlane pushes a new child plane onto ds and makes it active,
// returning it so the caller can later Commit or Discard it.
func (ds *Dataspace) EnterPlane() *Plane {
	child := &Plane{Parent: ds.Plane}
	child.alocal = PlaneLocal{Plane: child, Dataspace: ds}
	ds.Plane = child
	return child
}

// backupRecord is spec.md §3.4's per-snapshot record: the collection,
// its size at snapshot time, a heap copy of its element buffer (refs
// taken), and the plane it belonged to before this snapshot.
type backupRecord struct {
	coll     *Collection
	size     int
	original []Value
	plane    *Plane
}

// Backup snapshots c's current element buffer into active's chunk, if
// it hasn't already been snapshotted under active (spec.md §4.9's
// Clean→Snapshotted transition is idempotent per (collection, plane)
// pair: a mapping mutated twice under the same plane is only backed up
// once). Precondition: c.HashMod must be false — callers compact a
// mapping before mutating it.
func (rt *Runtime) Backup(active *Plane, c *Collection) {
	if c.Primary.Plane == active {
		return // already snapshotted in this plane
	}
	if c.HashMod {
		panic("collect: backing up unclean mapping")
	}

	var original []Value
	if c.Size != 0 {
		original = make([]Value, len(c.Elts))
		copy(original, c.Elts)
		for _, v := range original {
			if isCollKind(v.Kind) && v.Coll != nil {
				rt.Ref(v.Coll)
			}
		}
	}

	rec := &backupRecord{coll: c, size: c.Size, original: original, plane: c.Primary.Plane}
	active.chunk = append(active.chunk, rec)
	rt.Ref(c)
	c.Primary = &active.alocal
}

// Commit resolves every backup taken against plane. For each backup,
// Host.CommitArr decides whether the persistence layer wants it
// forwarded to plane.Parent (merge must also be true) or dropped.
//
// Open Question 2 from spec.md §9 — the original's merge=false branch
// silently abandons backups rather than releasing them — is resolved
// here by always fully releasing a backup that is not forwarded,
// whatever the reason: the chunk is single-shot and every reference a
// backup is holding is accounted for exactly once.
func (rt *Runtime) Commit(plane *Plane, merge bool) {
	chunk := plane.chunk
	plane.chunk = nil
	for _, rec := range chunk {
		forward := rt.host.CommitArr(rec.coll, plane, rec.plane)
		if merge && forward {
			if plane.Parent == nil {
				panic("collect: commit requested forwarding with no parent plane")
			}
			plane.Parent.chunk = append(plane.Parent.chunk, rec)
			continue
		}
		for _, v := range rec.original {
			rt.unrefValue(v)
		}
		rt.Unref(rec.coll)
	}
}

// Discard reverts every backup taken against plane: each collection's
// element buffer and overlay are replaced by the pre-mutation original,
// and the reference Backup took is released.
func (rt *Runtime) Discard(plane *Plane) {
	chunk := plane.chunk
	plane.chunk = nil
	// Walk back to front: a chunk can hold more than one record for the
	// same collection when a forwarded backup from a child plane sits
	// alongside this plane's own (spec.md §9 "Backup merge forwarding").
	// Restoring in reverse chronological order means the earliest
	// snapshot — the state as of entering this plane — wins.
	for i := len(chunk) - 1; i >= 0; i-- {
		rec := chunk[i]
		rt.host.DiscardArr(rec.coll, rec.plane)

		c := rec.coll
		for _, v := range c.Elts {
			rt.unrefValue(v)
		}
		if c.Hashed != nil {
			c.Hashed.forEach(func(e *overlayEntry) {
				if e.add {
					rt.unrefValue(e.idx)
					rt.unrefValue(e.val)
				}
			})
		}
		c.Hashed = nil
		c.HashMod = false
		c.Elts = rec.original
		c.Size = rec.size
		c.Primary = &rec.plane.alocal

		rt.Unref(c)
	}
}

// Freelist tears down every collection still linked into ds, for whole
// dataspace teardown (spec.md §4.10). Persistence hooks are not
// invoked — the dataspace is already going away — and, since Go's GC
// owns string memory, there is nothing left to release but the
// element buffers and overlays themselves.
func (ds *Dataspace) Freelist() {
	for c := ds.alist.Next; c != &ds.alist; {
		next := c.Next
		c.Elts = nil
		c.Hashed = nil
		c.Prev = nil
		c.Next = nil
		c = next
	}
	ds.alist.Next = &ds.alist
	ds.alist.Prev = &ds.alist
}
