package stepimpl

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/jsontree"
)

// Canonical record field names, in output order.
const (
	KeyType        = "type"
	KeyTarget      = "target"
	KeyInputs      = "inputs"
	KeyOutputs     = "outputs"
	KeyValidations = "validations"
)

// canonicalMap arranges the record for ir.MarshalCanonical.
func (s StepImplementation) canonicalMap() *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	if s.Type != nil {
		om.Set(KeyType, *s.Type)
	} else {
		om.Set(KeyType, nil)
	}
	om.Set(KeyTarget, s.Target)
	om.Set(KeyInputs, s.Inputs)
	om.Set(KeyOutputs, s.Outputs)
	om.Set(KeyValidations, s.Validations)
	return om
}

// Canonical returns the deterministic JSON encoding of the record.
// Record maps keep their order; decoded list objects are key-sorted.
func (s StepImplementation) Canonical() ([]byte, error) {
	data, err := ir.MarshalCanonical(s.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("canonical step implementation: %w", err)
	}
	return data, nil
}

// ID returns the content-addressed identity of the record.
func (s StepImplementation) ID() (string, error) {
	data, err := s.Canonical()
	if err != nil {
		return "", err
	}
	return ir.ImplementationID(data), nil
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (s StepImplementation) MarshalJSON() ([]byte, error) {
	return s.Canonical()
}

// UnmarshalJSON implements json.Unmarshaler for canonical records.
func (s *StepImplementation) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// Decode reads a record previously written by Canonical, preserving order.
// Top-level input objects read back as ir.Dict and objects inside input
// lists as ir.Object, matching what the Normalizer produces.
func Decode(data []byte) (StepImplementation, error) {
	doc, err := jsontree.Parse(data)
	if err != nil {
		return StepImplementation{}, fmt.Errorf("decode step implementation: %w", err)
	}
	if !doc.IsObject() {
		return StepImplementation{}, fmt.Errorf("decode step implementation: expected object, got %s", doc.Kind())
	}

	rec := New()
	if doc.Has(KeyType) {
		t := doc.Get(KeyType).Text()
		rec.Type = &t
	}
	rec.Target = doc.Get(KeyTarget).Text()

	var decodeErr error
	doc.Get(KeyInputs).Fields(func(name string, v jsontree.Node) bool {
		var val ir.Value
		val, decodeErr = decodeInput(v)
		if decodeErr != nil {
			decodeErr = fmt.Errorf("decode step implementation: inputs.%s: %w", name, decodeErr)
			return false
		}
		rec.Inputs.Set(name, val)
		return true
	})
	if decodeErr != nil {
		return StepImplementation{}, decodeErr
	}

	doc.Get(KeyOutputs).Fields(func(key string, v jsontree.Node) bool {
		rec.Outputs.Set(key, v.Text())
		return true
	})
	doc.Get(KeyValidations).Fields(func(key string, v jsontree.Node) bool {
		rec.Validations.Set(key, v.Text())
		return true
	})
	return rec, nil
}

func decodeInput(v jsontree.Node) (ir.Value, error) {
	switch v.Kind() {
	case jsontree.KindNull:
		return ir.Null{}, nil
	case jsontree.KindArray:
		list := make(ir.List, 0, v.Len())
		var err error
		v.ForEach(func(_ int, elem jsontree.Node) bool {
			if !elem.IsObject() {
				list = append(list, ir.String(elem.Text()))
				return true
			}
			var m map[string]any
			m, err = JSONMapDecoder{}.DecodeMap([]byte(elem.Raw()))
			if err != nil {
				return false
			}
			list = append(list, ir.Object(m))
			return true
		})
		if err != nil {
			return nil, err
		}
		return list, nil
	case jsontree.KindObject:
		d := ir.NewDict()
		v.Fields(func(key string, entry jsontree.Node) bool {
			d.Set(key, entry.Text())
			return true
		})
		return d, nil
	default:
		return ir.String(v.Text()), nil
	}
}

// Summary renders a short single-line description for text output.
func (s StepImplementation) Summary() string {
	var b strings.Builder
	if s.Type != nil {
		b.WriteString(*s.Type)
	} else {
		b.WriteString("<untyped>")
	}
	if s.Target != "" {
		b.WriteString(" @ ")
		b.WriteString(s.Target)
	}
	fmt.Fprintf(&b, " (inputs: %s", strings.Join(s.InputNames(), ", "))
	fmt.Fprintf(&b, "; outputs: %s", strings.Join(s.OutputNames(), ", "))
	fmt.Fprintf(&b, "; validations: %s)", strings.Join(s.ValidationNames(), ", "))
	return b.String()
}
