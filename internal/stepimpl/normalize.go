package stepimpl

import (
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/jsontree"
)

// Raw document field names.
const (
	FieldIdentifier  = "identifier"
	FieldTarget      = "target"
	FieldInputs      = "inputs"
	FieldListInputs  = "listInputs"
	FieldMapInputs   = "mapInputs"
	FieldOutputs     = "outputs"
	FieldValidations = "validations"
)

// Normalizer converts raw step implementation trees into StepImplementation
// records. The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	decoder MapDecoder
	logger  *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMapDecoder replaces the decoder used for object elements of list
// inputs. A nil decoder keeps the current one.
func WithMapDecoder(d MapDecoder) Option {
	return func(n *Normalizer) {
		if d != nil {
			n.decoder = d
		}
	}
}

// WithLogger sets the logger used for fallback diagnostics. A nil logger
// keeps the current one.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer creates a Normalizer using JSONMapDecoder and slog.Default().
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		decoder: JSONMapDecoder{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts doc with a default Normalizer.
func Normalize(doc jsontree.Node) (StepImplementation, error) {
	return NewNormalizer().Normalize(doc)
}

// Parse parses data as JSON and normalizes it with a default Normalizer.
func Parse(data []byte) (StepImplementation, error) {
	return NewNormalizer().Parse(data)
}

// Parse parses data as JSON and normalizes the root document.
func (n *Normalizer) Parse(data []byte) (StepImplementation, error) {
	doc, err := jsontree.Parse(data)
	if err != nil {
		return StepImplementation{}, fmt.Errorf("parse step implementation: %w", err)
	}
	return n.Normalize(doc)
}

// ParseMany parses data as a JSON array of documents and normalizes each
// element in order. The first malformed element fails the whole batch.
func (n *Normalizer) ParseMany(data []byte) ([]StepImplementation, error) {
	root, err := jsontree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse step implementations: %w", err)
	}
	if !root.IsArray() {
		return nil, &MalformedError{Path: "$", Reason: fmt.Sprintf("expected array of documents, got %s", root.Kind())}
	}

	out := make([]StepImplementation, 0, root.Len())
	root.ForEach(func(i int, doc jsontree.Node) bool {
		var impl StepImplementation
		impl, err = n.normalizeAt(doc, fmt.Sprintf("[%d].", i))
		if err != nil {
			return false
		}
		out = append(out, impl)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize converts one raw document tree into a canonical record.
// It fails only when a section or array element is malformed.
func (n *Normalizer) Normalize(doc jsontree.Node) (StepImplementation, error) {
	return n.normalizeAt(doc, "")
}

func (n *Normalizer) normalizeAt(doc jsontree.Node, prefix string) (StepImplementation, error) {
	inputs, err := n.inputs(doc, prefix)
	if err != nil {
		return StepImplementation{}, err
	}
	outputs, err := keyValues(doc, prefix, FieldOutputs)
	if err != nil {
		return StepImplementation{}, err
	}
	validations, err := keyValues(doc, prefix, FieldValidations)
	if err != nil {
		return StepImplementation{}, err
	}

	return StepImplementation{
		Type:        implementationType(doc),
		Target:      target(doc),
		Inputs:      inputs,
		Outputs:     outputs,
		Validations: validations,
	}, nil
}

func implementationType(doc jsontree.Node) *string {
	if !doc.Has(FieldIdentifier) {
		return nil
	}
	t := doc.Get(FieldIdentifier).Text()
	return &t
}

func target(doc jsontree.Node) string {
	node := doc.Get(FieldTarget)
	if !node.Exists() || node.IsNull() {
		node = jsontree.StringNode("")
	}
	return node.Text()
}

func (n *Normalizer) inputs(doc jsontree.Node, prefix string) (*orderedmap.OrderedMap[string, ir.Value], error) {
	inputs := orderedmap.New[string, ir.Value]()

	// Simple inputs
	err := eachElement(doc, prefix, FieldInputs, func(path string, in jsontree.Node) error {
		name, err := requiredField(in, path, "name")
		if err != nil {
			return err
		}
		value, err := requiredField(in, path, "value")
		if err != nil {
			return err
		}
		inputs.Set(name.Text(), simpleValue(value))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// List inputs
	err = eachElement(doc, prefix, FieldListInputs, func(path string, in jsontree.Node) error {
		name, err := requiredField(in, path, "name")
		if err != nil {
			return err
		}
		values, err := valuesArray(in, path)
		if err != nil {
			return err
		}
		list := make(ir.List, 0, values.Len())
		values.ForEach(func(_ int, v jsontree.Node) bool {
			list = append(list, n.listValue(v))
			return true
		})
		inputs.Set(name.Text(), list)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Map inputs
	err = eachElement(doc, prefix, FieldMapInputs, func(path string, in jsontree.Node) error {
		name, err := requiredField(in, path, "name")
		if err != nil {
			return err
		}
		values, err := valuesArray(in, path)
		if err != nil {
			return err
		}
		dict := ir.NewDict()
		var entryErr error
		values.ForEach(func(i int, entry jsontree.Node) bool {
			entryPath := fmt.Sprintf("%s.values[%d]", path, i)
			var key, value jsontree.Node
			if key, entryErr = requiredField(entry, entryPath, "key"); entryErr != nil {
				return false
			}
			if value, entryErr = requiredField(entry, entryPath, "value"); entryErr != nil {
				return false
			}
			dict.Set(key.Text(), value.Text())
			return true
		})
		if entryErr != nil {
			return entryErr
		}
		inputs.Set(name.Text(), dict)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inputs, nil
}

// simpleValue maps an empty text form to ir.Null.
func simpleValue(value jsontree.Node) ir.Value {
	text := value.Text()
	if text == "" {
		return ir.Null{}
	}
	return ir.String(text)
}

// listValue coerces one list input element. Objects are decoded generically;
// a decode failure keeps the serialized object as text and is never returned.
func (n *Normalizer) listValue(v jsontree.Node) ir.Value {
	if !v.IsObject() {
		return ir.String(v.Text())
	}

	raw := v.Raw()
	decoded, err := n.decoder.DecodeMap([]byte(raw))
	if err != nil {
		n.logger.Debug("list input element kept as text",
			"error", err,
			"bytes", len(raw),
		)
		return ir.String(raw)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return ir.Object(decoded)
}

func keyValues(doc jsontree.Node, prefix, field string) (*orderedmap.OrderedMap[string, string], error) {
	out := orderedmap.New[string, string]()
	err := eachElement(doc, prefix, field, func(path string, in jsontree.Node) error {
		key, err := requiredField(in, path, "key")
		if err != nil {
			return err
		}
		value, err := requiredField(in, path, "value")
		if err != nil {
			return err
		}
		out.Set(key.Text(), value.Text())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachElement calls fn for every element of the named section array.
// Absent and null sections are skipped; any other non-array is malformed.
func eachElement(doc jsontree.Node, prefix, field string, fn func(path string, elem jsontree.Node) error) error {
	if !doc.Has(field) {
		return nil
	}
	section := doc.Get(field)
	if !section.IsArray() {
		return &MalformedError{
			Path:   prefix + field,
			Reason: fmt.Sprintf("expected array, got %s", section.Kind()),
		}
	}

	var err error
	section.ForEach(func(i int, elem jsontree.Node) bool {
		err = fn(fmt.Sprintf("%s%s[%d]", prefix, field, i), elem)
		return err == nil
	})
	return err
}

func requiredField(elem jsontree.Node, path, field string) (jsontree.Node, error) {
	if !elem.IsObject() {
		return jsontree.Node{}, &MalformedError{
			Path:   path,
			Reason: fmt.Sprintf("expected object, got %s", elem.Kind()),
		}
	}
	value := elem.Get(field)
	if !value.Exists() {
		return jsontree.Node{}, &MalformedError{Path: path, Field: field}
	}
	return value, nil
}

// valuesArray returns the "values" array of a list or map input.
// A null "values" reads as an empty array.
func valuesArray(elem jsontree.Node, path string) (jsontree.Node, error) {
	values, err := requiredField(elem, path, "values")
	if err != nil {
		return jsontree.Node{}, err
	}
	if values.IsNull() || values.IsArray() {
		return values, nil
	}
	return jsontree.Node{}, &MalformedError{
		Path:   path + ".values",
		Reason: fmt.Sprintf("expected array, got %s", values.Kind()),
	}
}
