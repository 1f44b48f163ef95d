package stepimpl

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/stepnorm/internal/ir"
)

// StepImplementation is the canonical record for one step implementation.
// It is built once by the Normalizer and not mutated afterwards. The maps,
// and the Dict and List values inside Inputs, are shared by every copy of
// the record; callers must treat them as read-only. The name accessors
// return fresh slices.
type StepImplementation struct {
	// Type is the implementation identifier; nil when the document has none.
	Type *string

	// Target names the execution target; "" when absent.
	Target string

	// Inputs maps input names to ir.String, ir.Null, ir.List or ir.Dict,
	// in order of first appearance (simple, then list, then map inputs).
	Inputs *orderedmap.OrderedMap[string, ir.Value]

	Outputs     *orderedmap.OrderedMap[string, string]
	Validations *orderedmap.OrderedMap[string, string]
}

// New returns an empty record with allocated maps.
func New() StepImplementation {
	return StepImplementation{
		Inputs:      orderedmap.New[string, ir.Value](),
		Outputs:     orderedmap.New[string, string](),
		Validations: orderedmap.New[string, string](),
	}
}

// TypeName returns the identifier, or "" when there is none.
func (s StepImplementation) TypeName() string {
	if s.Type == nil {
		return ""
	}
	return *s.Type
}

// Input returns the named input value.
func (s StepImplementation) Input(name string) (ir.Value, bool) {
	if s.Inputs == nil {
		return nil, false
	}
	return s.Inputs.Get(name)
}

// InputString returns the named input when it is a string.
// A null input reports false.
func (s StepImplementation) InputString(name string) (string, bool) {
	v, ok := s.Input(name)
	if !ok {
		return "", false
	}
	str, ok := v.(ir.String)
	return string(str), ok
}

// InputList returns the named input when it is a list.
func (s StepImplementation) InputList(name string) (ir.List, bool) {
	v, ok := s.Input(name)
	if !ok {
		return nil, false
	}
	list, ok := v.(ir.List)
	return list, ok
}

// InputDict returns the named input when it is a map input.
func (s StepImplementation) InputDict(name string) (ir.Dict, bool) {
	v, ok := s.Input(name)
	if !ok {
		return ir.Dict{}, false
	}
	d, ok := v.(ir.Dict)
	return d, ok
}

// InputNames returns input names in record order.
func (s StepImplementation) InputNames() []string {
	return keysOf(s.Inputs)
}

// Output returns the named output expression.
func (s StepImplementation) Output(name string) (string, bool) {
	if s.Outputs == nil {
		return "", false
	}
	return s.Outputs.Get(name)
}

// OutputNames returns output names in record order.
func (s StepImplementation) OutputNames() []string {
	return keysOf(s.Outputs)
}

// Validation returns the named validation expression.
func (s StepImplementation) Validation(name string) (string, bool) {
	if s.Validations == nil {
		return "", false
	}
	return s.Validations.Get(name)
}

// ValidationNames returns validation names in record order.
func (s StepImplementation) ValidationNames() []string {
	return keysOf(s.Validations)
}

// Equal reports whether both records have the same canonical encoding,
// including key order.
func (s StepImplementation) Equal(other StepImplementation) bool {
	a, err := s.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

func keysOf[V any](om *orderedmap.OrderedMap[string, V]) []string {
	if om == nil {
		return nil
	}
	keys := make([]string, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
