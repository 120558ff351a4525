package collect

// mergeRegistry is the process-wide identity-keyed table spec.md §4.1
// describes: higher layers (serialisers, structural comparators) use it
// to coalesce shared substructure while traversing a value graph. It is
// not concurrency-safe; callers guarantee exclusive use for the
// duration of one traversal pass.
type mergeRegistry struct {
	table map[*Collection]uint32
}

func newMergeRegistry() *mergeRegistry {
	return &mergeRegistry{table: make(map[*Collection]uint32)}
}

// put registers c under idx if it isn't already registered, and
// returns the index now on record for c (arr_put in the original).
func (m *mergeRegistry) put(c *Collection, idx uint32) uint32 {
	if existing, ok := m.table[c]; ok {
		return existing
	}
	m.table[c] = idx
	return idx
}

// clear releases every reference the registry was holding and empties
// the table (arr_clear).
func (m *mergeRegistry) clear(rt *Runtime) {
	for c := range m.table {
		rt.unref(c)
	}
	m.table = make(map[*Collection]uint32)
}

// Put is the exported form of spec.md §4.1's put(handle, index) →
// index'. Registering a collection takes a reference on it, released
// when the registry is next cleared.
func (rt *Runtime) Put(c *Collection, idx uint32) uint32 {
	if existing, ok := rt.merge.table[c]; ok {
		return existing
	}
	rt.Ref(c)
	return rt.merge.put(c, idx)
}

// ClearMergeTable clears the merge registry, as done between
// serialisation passes.
func (rt *Runtime) ClearMergeTable() {
	rt.merge.clear(rt)
}
