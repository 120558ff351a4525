package collect

// Kind is the Value tag set from spec.md §3.1.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindString
	KindObject
	KindArray
	KindMapping
	KindLightWeight
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindMapping:
		return "mapping"
	case KindLightWeight:
		return "light-weight"
	default:
		return "invalid"
	}
}

// isCollKind reports whether k is one of the three collection-handle
// kinds (T_INDEXED in the original).
func isCollKind(k Kind) bool {
	return k == KindArray || k == KindMapping || k == KindLightWeight
}

// InternedString is the handle the (external, out of scope) Strings
// module hands the core. The core never mutates Text; identity (this
// pointer) is what verifyString-style optimistic updates key off of
// (spec.md §4.5), and Text is what the total order compares
// byte-lexicographically.
type InternedString struct {
	Text string
}

// ObjectRef is the payload of a T_OBJECT value: a persistent object
// index plus the update counter observed when the reference was taken.
// Equality tolerates the object having been destroyed and a new one
// resurrected at the same index with a bumped counter (spec.md §3.1,
// §4.4): two ObjectRefs order equal by Index alone; Host.Destructed
// decides liveness from Count.
type ObjectRef struct {
	Index int32
	Count uint32
}

// Value is the tagged union of spec.md §3.1. Exactly one payload field
// is meaningful, selected by Kind; the others are zero.
type Value struct {
	Kind  Kind
	Int   int32
	Float FloatValue
	Str   *InternedString
	Obj   ObjectRef
	Coll  *Collection

	// collGen is the generation tag cached at the moment this Value was
	// last made to point at Coll. It, not Coll.Tag, is what the
	// comparator orders on (spec.md §3.1 "cached generation tag").
	collGen uint32
}

// Nil is the canonical nil value.
var Nil = Value{Kind: KindNil}

// IntValue wraps a host-wide signed 32-bit integer.
func IntValue(n int32) Value { return Value{Kind: KindInt, Int: n} }

// FloatVal wraps a FloatValue.
func FloatVal(f FloatValue) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue wraps an interned string handle.
func StringValue(s *InternedString) Value { return Value{Kind: KindString, Str: s} }

// ObjectValue wraps an object reference.
func ObjectValue(ref ObjectRef) Value { return Value{Kind: KindObject, Obj: ref} }

// collValue wraps a collection handle, caching its current generation
// tag the way every construction site in the original does at the
// point a Value starts pointing at an Array/Mapping/LightWeight.
func collValue(kind Kind, c *Collection) Value {
	return Value{Kind: kind, Coll: c, collGen: c.Tag}
}

// IsNil reports whether v is the nil value (VAL_NIL in the original).
func (v Value) IsNil() bool { return v.Kind == KindNil }

// SameString reports whether v is a string value backed by exactly s
// (the verifyString optimistic-update check, spec.md §4.5).
func (v Value) SameString(s *InternedString) bool {
	return v.Kind == KindString && v.Str == s
}
