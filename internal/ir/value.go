package ir

import (
	"slices"
	"unicode/utf16"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a sealed interface representing a normalized input value.
// Only Null, String, List, Dict and Object implement this.
// Consumers discriminate with a type switch.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents an input that carries no value (e.g. an empty simple input).
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text value.
type String string

func (String) irValue() {}

// List represents an ordered sequence of values.
// Elements produced by the normalizer are String or Object.
type List []Value

func (List) irValue() {}

// Dict represents an ordered string-to-string mapping (a map input).
// Iteration follows first insertion; re-setting a key keeps its position.
type Dict struct {
	*orderedmap.OrderedMap[string, string]
}

func (Dict) irValue() {}

// NewDict creates an empty Dict.
func NewDict() Dict {
	return Dict{orderedmap.New[string, string]()}
}

// NewDictFromPairs creates a Dict from key-value pairs in order.
// Example: NewDictFromPairs(P("a", "1"), P("b", "2"))
func NewDictFromPairs(pairs ...Pair) Dict {
	d := NewDict()
	for _, p := range pairs {
		d.Set(p.Key, p.Value)
	}
	return d
}

// Pair is a key-value pair for ordered Dict construction.
type Pair struct {
	Key   string
	Value string
}

// P is a shorthand for Pair.
func P(key, value string) Pair {
	return Pair{Key: key, Value: value}
}

// Keys returns the keys in insertion order.
func (d Dict) Keys() []string {
	if d.OrderedMap == nil {
		return nil
	}
	keys := make([]string, 0, d.Len())
	for pair := d.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Pairs returns the entries in insertion order.
func (d Dict) Pairs() []Pair {
	if d.OrderedMap == nil {
		return nil
	}
	pairs := make([]Pair, 0, d.Len())
	for pair := d.Oldest(); pair != nil; pair = pair.Next() {
		pairs = append(pairs, Pair{Key: pair.Key, Value: pair.Value})
	}
	return pairs
}

// Size returns the number of entries, tolerating a zero Dict.
func (d Dict) Size() int {
	if d.OrderedMap == nil {
		return 0
	}
	return d.Len()
}

// Object represents a generically decoded JSON object.
// Nested values are map[string]any, []any, string, bool, json.Number or nil.
// Use SortedKeys() for deterministic iteration.
type Object map[string]any

func (Object) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	return sortedKeys(obj)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Kind names of the Value variants, as reported by KindOf.
const (
	KindNull   = "null"
	KindString = "string"
	KindList   = "list"
	KindDict   = "dict"
	KindObject = "object"
)

// KindOf returns the variant name of v.
// A nil Value reports KindNull.
func KindOf(v Value) string {
	switch v.(type) {
	case nil, Null:
		return KindNull
	case String:
		return KindString
	case List:
		return KindList
	case Dict:
		return KindDict
	case Object:
		return KindObject
	default:
		return "unknown"
	}
}

// Equal reports whether two values have the same canonical encoding.
// Values that cannot be encoded are never equal.
func Equal(a, b Value) bool {
	ab, err := MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := MarshalCanonical(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
