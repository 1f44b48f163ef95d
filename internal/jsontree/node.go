package jsontree

import (
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrInvalidJSON is returned by Parse when the input is not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid JSON document")

// Kind identifies the JSON shape of a Node.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Node is an immutable view of one value in a parsed JSON document.
// The zero Node is missing.
type Node struct {
	r gjson.Result
}

// Parse validates data and returns its root node.
func Parse(data []byte) (Node, error) {
	if !gjson.ValidBytes(data) {
		return Node{}, ErrInvalidJSON
	}
	return Node{r: gjson.ParseBytes(data)}, nil
}

// ParseString is Parse for string input.
func ParseString(s string) (Node, error) {
	if !gjson.Valid(s) {
		return Node{}, ErrInvalidJSON
	}
	return Node{r: gjson.Parse(s)}, nil
}

// StringNode returns a detached string node, used as a placeholder
// for absent fields.
func StringNode(s string) Node {
	return Node{r: gjson.Result{Type: gjson.String, Str: s, Raw: strconv.Quote(s)}}
}

// Kind reports the shape of the node.
func (n Node) Kind() Kind {
	if !n.r.Exists() {
		return KindMissing
	}
	switch n.r.Type {
	case gjson.Null:
		return KindNull
	case gjson.String:
		return KindString
	case gjson.Number:
		return KindNumber
	case gjson.True, gjson.False:
		return KindBool
	case gjson.JSON:
		if n.r.IsArray() {
			return KindArray
		}
		return KindObject
	default:
		return KindMissing
	}
}

// Exists reports whether the node is present in the document, including JSON null.
func (n Node) Exists() bool {
	return n.r.Exists()
}

// IsNull reports whether the node is present and JSON null.
func (n Node) IsNull() bool {
	return n.Kind() == KindNull
}

// IsObject reports whether the node is a JSON object.
func (n Node) IsObject() bool {
	return n.r.IsObject()
}

// IsArray reports whether the node is a JSON array.
func (n Node) IsArray() bool {
	return n.r.IsArray()
}

// Has reports whether the named field is present and not JSON null.
func (n Node) Has(name string) bool {
	f := n.Get(name)
	return f.Exists() && !f.IsNull()
}

// Get returns the named field of an object node.
// The result is missing when n is not an object or has no such field.
func (n Node) Get(name string) Node {
	if !n.r.IsObject() {
		return Node{}
	}
	var found gjson.Result
	n.r.ForEach(func(key, value gjson.Result) bool {
		if key.String() == name {
			found = value
		}
		return true
	})
	return Node{r: found}
}

// ForEach calls fn for each element of an array node in document order,
// stopping early when fn returns false. Non-array nodes yield nothing.
func (n Node) ForEach(fn func(i int, elem Node) bool) {
	if !n.r.IsArray() {
		return
	}
	i := 0
	n.r.ForEach(func(_, value gjson.Result) bool {
		ok := fn(i, Node{r: value})
		i++
		return ok
	})
}

// Fields calls fn for each member of an object node in document order.
func (n Node) Fields(fn func(key string, value Node) bool) {
	if !n.r.IsObject() {
		return
	}
	n.r.ForEach(func(key, value gjson.Result) bool {
		return fn(key.String(), Node{r: value})
	})
}

// Len returns the number of elements of an array node, or zero.
func (n Node) Len() int {
	count := 0
	n.ForEach(func(int, Node) bool {
		count++
		return true
	})
	return count
}

// Text returns the scalar text form of the node:
// strings unquoted, numbers as written, booleans as true/false,
// null as "null", arrays and objects as compact JSON, missing as "".
func (n Node) Text() string {
	switch n.Kind() {
	case KindString:
		return n.r.Str
	case KindNumber:
		return n.r.Raw
	case KindBool:
		return strconv.FormatBool(n.r.Bool())
	case KindNull:
		return "null"
	case KindArray, KindObject:
		return n.Raw()
	default:
		return ""
	}
}

// Raw returns the compact serialized form of the node, preserving
// key order and literals as written. Missing nodes return "".
func (n Node) Raw() string {
	if !n.r.Exists() {
		return ""
	}
	return string(pretty.Ugly([]byte(n.r.Raw)))
}
