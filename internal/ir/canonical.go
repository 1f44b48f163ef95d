package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MarshalCanonical produces deterministic JSON for hashing and storage.
// CRITICAL: This is the ONLY serialization that should be used for
// content-addressed identity computation.
//
// Key differences from standard json.Marshal:
// 1. Object (generic map) keys sorted by UTF-16 code units (RFC 8785)
// 2. Ordered maps (Dict, *orderedmap.OrderedMap) keep insertion order
// 3. No HTML escaping (< > & are NOT escaped), U+2028/U+2029 left literal
// 4. Strings are written byte for byte; invalid UTF-8 is an error
// 5. No floats (returns error) - numbers must be json.Number or integers
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		// Literal as decoded; validated so garbage never reaches the output.
		if !json.Valid([]byte(val)) {
			return fmt.Errorf("invalid number literal %q", string(val))
		}
		buf.WriteString(string(val))
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case List:
		return writeCanonicalArray(buf, len(val), func(i int) any { return val[i] })
	case []any:
		return writeCanonicalArray(buf, len(val), func(i int) any { return val[i] })
	case Object:
		return writeCanonicalSorted(buf, map[string]any(val))
	case map[string]any:
		return writeCanonicalSorted(buf, val)
	case Dict:
		return writeCanonicalOrdered(buf, val.OrderedMap)
	case *orderedmap.OrderedMap[string, string]:
		return writeCanonicalOrdered(buf, val)
	case *orderedmap.OrderedMap[string, Value]:
		return writeCanonicalOrdered(buf, val)
	case *orderedmap.OrderedMap[string, any]:
		return writeCanonicalOrdered(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// ErrInvalidUTF8 is returned for strings that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 in string")

// writeCanonicalString writes s unchanged apart from escaping. Only control
// characters (U+0000-U+001F), backslash and quote are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
	}

	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, n int, at func(int) any) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, at(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeCanonicalSorted writes an unordered map with RFC 8785 key ordering.
func writeCanonicalSorted(buf *bytes.Buffer, m map[string]any) error {
	buf.WriteByte('{')
	for i, k := range sortedKeys(m) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key: %w", err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, m[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalOrdered writes an ordered map in insertion order.
// Insertion order is part of the record and is never re-sorted.
func writeCanonicalOrdered[V any](buf *bytes.Buffer, om *orderedmap.OrderedMap[string, V]) error {
	buf.WriteByte('{')
	if om == nil {
		buf.WriteByte('}')
		return nil
	}
	i := 0
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, pair.Key); err != nil {
			return fmt.Errorf("key: %w", err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, pair.Value); err != nil {
			return fmt.Errorf("value for key %q: %w", pair.Key, err)
		}
		i++
	}
	buf.WriteByte('}')
	return nil
}
