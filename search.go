package collect

import "strings"

// Cmp implements the total order of spec.md §3.1: first by Kind
// ordinal, then by payload. Two collection handles with the same
// generation tag but different identity compare equal here — callers
// that need identity equality use Search's tag-collision probe
// instead (spec.md §4.2).
func Cmp(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}

	switch a.Kind {
	case KindNil:
		return 0

	case KindInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}

	case KindFloat:
		return a.Float.Cmp(b.Float)

	case KindString:
		return strings.Compare(a.Str.Text, b.Str.Text)

	case KindObject:
		switch {
		case a.Obj.Index < b.Obj.Index:
			return -1
		case a.Obj.Index > b.Obj.Index:
			return 1
		default:
			return 0
		}

	case KindArray, KindMapping, KindLightWeight:
		switch {
		case a.collGen < b.collGen:
			return -1
		case a.collGen > b.collGen:
			return 1
		default:
			return 0
		}

	default:
		return 0
	}
}

// Search does a binary search over buf[:n] at the given stride (step=1
// for arrays, step=2 for the key half of mapping (key,value) pairs).
// When place is true, a miss returns the sorted insertion index instead
// of -1.
//
// A comparator-equal hit on a collection-kind key is followed by a
// bounded linear probe: walk forward then backward from the midpoint
// over the contiguous run of tag-equal collection-kind entries until
// identity matches or the run ends (spec.md §4.2 — two collections can
// legitimately share a generation tag after a persistent round-trip).
func Search(key Value, buf []Value, n int, step int, place bool) int {
	l, h := 0, n
	for l < h {
		m := ((l + h) / 2 / step) * step
		c := Cmp(key, buf[m])
		if c == 0 {
			if isCollKind(key.Kind) && key.Coll != buf[m].Coll {
				for mm := m + step; mm < h && isCollKind(buf[mm].Kind); mm += step {
					if key.Coll == buf[mm].Coll {
						return mm
					}
					if buf[mm].collGen != key.collGen {
						break
					}
				}
				for mm := m - step; mm >= l && isCollKind(buf[mm].Kind); mm -= step {
					if key.Coll == buf[mm].Coll {
						return mm
					}
					if buf[mm].collGen != key.collGen {
						break
					}
				}
				break // not found
			}
			return m
		} else if c < 0 {
			h = m
		} else {
			l = m + step
		}
	}
	if place {
		return l
	}
	return -1
}
