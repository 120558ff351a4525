package collect

// Options configures a Runtime beyond the required maxSize/Host pair,
// mirroring the teacher's edb.Options (db.go): a Logf hook so a caller
// can route diagnostics into its own logger, left nil by default
// since the core is silent by design (single-threaded, caller-owned).
type Options struct {
	Logf func(format string, args ...any)
}

// Runtime holds the process-wide state spec.md's Design Notes insist
// has "no global mutable state outside init": the configured element
// cap, the monotonic generation-tag counter, the destruct epoch, and
// the merge registry. Rather than package-level variables (arr_init/
// arr_merge/arr_clear in the original all touch file-static state), it
// is an explicit object constructed once via NewRuntime and threaded
// through every operation — the same shape the teacher gives *DB.
type Runtime struct {
	host Host

	maxSize int
	logf    func(format string, args ...any)

	tag     uint32
	odcount uint64

	merge *mergeRegistry

	// destroyQueue is the iterative deferred-destroy chain described in
	// spec.md §9 ("Cyclic object graph on unref"): Unref pushes
	// zero-refcount collections here instead of recursing, and the
	// outermost Unref call drains it.
	destroyQueue *Collection
	destroying   bool
}

// NewRuntime creates a Runtime with the given per-collection element
// cap (spec.md §6 init(max_size); mappings use 2×maxSize half-entries)
// and default Options.
func NewRuntime(maxSize int, host Host) *Runtime {
	return NewRuntimeWithOptions(maxSize, host, Options{})
}

// NewRuntimeWithOptions is NewRuntime with an explicit Options value.
func NewRuntimeWithOptions(maxSize int, host Host, opt Options) *Runtime {
	if host == nil {
		panic("collect: NewRuntime requires a non-nil Host")
	}
	logf := opt.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Runtime{
		host:    host,
		maxSize: maxSize,
		logf:    logf,
		merge:   newMergeRegistry(),
	}
}

// MaxSize returns the configured per-array element cap.
func (rt *Runtime) MaxSize() int { return rt.maxSize }

// nextTag assigns the next monotonic generation tag.
func (rt *Runtime) nextTag() uint32 {
	t := rt.tag
	rt.tag++
	return t
}

// BumpODCount advances the global destruct epoch. Called by the
// (external) object layer whenever a persistent object is destroyed;
// every collection whose own ODCount then lags this value is scrubbed
// of destructed references the next time it is touched by compact, a
// set-algebra operation, or a mapping index lookup (spec.md §4.4) — the
// last of these checks the hit in place rather than waiting for a full
// compact, since a stale hash- or array-hit is still reachable by
// object-index equality alone (search.go's Cmp never looks past it).
func (rt *Runtime) BumpODCount() {
	rt.odcount++
}

// ODCount returns the current destruct epoch.
func (rt *Runtime) ODCount() uint64 { return rt.odcount }

// FreeAll resets the process-wide state: it clears the merge registry
// (releasing the reference held on each registered collection) and
// resets the generation-tag counter and the destruct epoch. Unlike
// Dataspace.Freelist, it does not walk any dataspace's sibling list;
// it is the final step of process shutdown once every dataspace has
// already been freed.
func (rt *Runtime) FreeAll() {
	rt.merge.clear(rt)
	rt.tag = 0
	rt.odcount = 0
}
