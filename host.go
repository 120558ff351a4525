package collect

// Host is the narrow set of callbacks spec.md §6 names as consumed
// from the persistent-layer (Dataspace/Dataplane), object and
// interpreter collaborators. The core never reaches into a Dataspace's
// internals directly; every effect that needs to be visible outside a
// Collection's own buffer goes through Host.
//
// Implementations: hoststore.MemStore (tests, ephemeral), hoststore.BoltStore
// (bbolt-backed demand-loading of swapped-out element buffers).
type Host interface {
	// GetElts demand-loads a collection's element buffer if it has been
	// swapped out cold, and must be called before any read of
	// Collection.Elts. A Collection whose buffer is already resident
	// just returns it.
	GetElts(c *Collection) ([]Value, error)

	// AssignElt atomically writes newValue into *slot, recording undo
	// information in ds's active plane so a later Discard can restore it.
	AssignElt(ds *Dataspace, c *Collection, slot *Value, newValue Value)

	// ChangeMap marks a mapping's structure dirty for persistence.
	ChangeMap(c *Collection)

	// RefImports walks a freshly constructed result collection and fixes
	// up any cross-dataspace references it now holds.
	RefImports(c *Collection)

	// CommitArr is invoked once per backed-up collection during plane
	// commit. forward reports whether the persistence layer wants the backup
	// forwarded to the parent plane (ownership of the original buffer
	// moves there) rather than dropped.
	CommitArr(c *Collection, current, original *Plane) (forward bool)

	// DiscardArr is invoked once per backed-up collection during plane
	// discard, before the core restores the original buffer.
	DiscardArr(c *Collection, original *Plane)

	// ThisPlane reports whether local (a collection's owning
	// allocation-local record) belongs to ds's currently active plane —
	// the cross-plane-fold guard map_index and map_compact route every
	// hash-overlay access through in the original (THISPLANE(m->primary)).
	ThisPlane(ds *Dataspace, local *PlaneLocal) bool

	// SamePlane reports whether two dataspaces currently share an active
	// plane (used to decide whether a mapping's overlay needs folding
	// before a cross-plane read, spec.md §4.5 step 1).
	SamePlane(a, b *Dataspace) bool

	// Destructed reports whether an Object value's stored update counter
	// no longer matches the live persistent object (spec.md §4.4). The
	// core only passes Object values; a LightWeight is checked through
	// the Object in its slot 0.
	Destructed(v Value) bool

	// NumVariables returns the instance-variable count obj's Control
	// metadata declares (o_control in the original), used to size a new
	// light-weight object's buffer (spec.md §4.8).
	NumVariables(obj ObjectRef) (int, error)

	// InitVariables asks the persistent layer to initialise a freshly
	// allocated light-weight object's variable slots, c.Elts[2:], for obj
	// (d_new_variables in the original).
	InitVariables(ds *Dataspace, c *Collection, obj ObjectRef) error
}
