package collect

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// overlayEntry is one (key,value) pair held in a mapping's hash
// overlay rather than its sorted array half (spec.md §3.3). add marks
// a pending insertion not yet folded into the sorted array; MapIndex
// only ever creates add entries, and dehash drops entries once it has
// folded them. Only add entries are unrefed when a mapping is released
// or a plane is discarded.
type overlayEntry struct {
	idx, val Value
	add      bool
	hashval  uint32
	next     *overlayEntry
}

// hashOverlay is a chained hash table, grounded on spec.md §3.3: a
// mapping accumulates pending index assignments here between
// map_dehash passes instead of re-sorting its array on every write.
// Starts at 16 buckets and doubles whenever load exceeds 0.75.
type hashOverlay struct {
	buckets []*overlayEntry
	size    int
}

func newHashOverlay() *hashOverlay {
	return &hashOverlay{buckets: make([]*overlayEntry, 16)}
}

// hashValue computes the per-type hash spec.md §4.5 step 2 pins down:
// a fixed constant for Nil, the raw value for Int, the bit-pattern hash
// for Float, an xxhash of the text XORed with its length for String,
// the object index for Object, and a pointer-derived value for
// collection handles (arrays/mappings/light-weight objects), which
// only ever need to hash consistently with their own identity within
// one process lifetime.
func hashValue(v Value) uint32 {
	switch v.Kind {
	case KindNil:
		return 4747
	case KindInt:
		return uint32(v.Int)
	case KindFloat:
		return v.Float.Hash()
	case KindString:
		return uint32(xxhash.Sum64String(v.Str.Text)) ^ uint32(len(v.Str.Text))
	case KindObject:
		return uint32(v.Obj.Index)
	case KindArray, KindMapping, KindLightWeight:
		return uint32(uintptr(unsafe.Pointer(v.Coll)) >> 3)
	default:
		return 0
	}
}

func (h *hashOverlay) bucket(hashval uint32) int {
	return int(hashval) % len(h.buckets)
}

// find returns the overlay entry for key, or nil if key has no pending
// overlay entry. Cmp orders collection-kind values by generation tag
// alone (search.go), so a tag collision between two distinct
// collections — the documented, tolerated anomaly of spec.md §3.1 —
// would otherwise let one collection's entry answer a lookup for
// another. The identity check below mirrors Search's own
// tag-collision probe: a Cmp-equal hit for a collection-kind key is
// only accepted once confirmed to be the same handle.
func (h *hashOverlay) find(key Value) *overlayEntry {
	hv := hashValue(key)
	for e := h.buckets[h.bucket(hv)]; e != nil; e = e.next {
		if e.hashval == hv && Cmp(e.idx, key) == 0 {
			if isCollKind(key.Kind) && e.idx.Coll != key.Coll {
				continue
			}
			return e
		}
	}
	return nil
}

// put installs or replaces the overlay entry for key, growing the
// table first if the insert would push load past 0.75.
func (h *hashOverlay) put(key, val Value, add bool) {
	if e := h.find(key); e != nil {
		e.val = val
		return
	}
	if (h.size+1)*4 > len(h.buckets)*3 {
		h.grow()
	}
	hv := hashValue(key)
	b := h.bucket(hv)
	h.buckets[b] = &overlayEntry{idx: key, val: val, add: add, hashval: hv, next: h.buckets[b]}
	h.size++
}

func (h *hashOverlay) grow() {
	old := h.buckets
	h.buckets = make([]*overlayEntry, len(old)*2)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			b := h.bucket(e.hashval)
			e.next = h.buckets[b]
			h.buckets[b] = e
			e = next
		}
	}
}

// delete unlinks e from its bucket chain.
func (h *hashOverlay) delete(e *overlayEntry) {
	b := h.bucket(e.hashval)
	if h.buckets[b] == e {
		h.buckets[b] = e.next
		h.size--
		return
	}
	for cur := h.buckets[b]; cur != nil && cur.next != nil; cur = cur.next {
		if cur.next == e {
			cur.next = e.next
			h.size--
			return
		}
	}
}

// forEach visits every overlay entry in unspecified order.
func (h *hashOverlay) forEach(fn func(*overlayEntry)) {
	if h == nil {
		return
	}
	for _, head := range h.buckets {
		for e := head; e != nil; e = e.next {
			fn(e)
		}
	}
}
