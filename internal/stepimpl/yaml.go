package stepimpl

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepnorm/internal/ir"
)

// MarshalYAML implements yaml.Marshaler, keeping record order.
func (s StepImplementation) MarshalYAML() (any, error) {
	return s.YAMLNode()
}

// YAMLNode builds an ordered YAML mapping for the record.
func (s StepImplementation) YAMLNode() (*yaml.Node, error) {
	root := mappingNode()
	if s.Type != nil {
		addPair(root, KeyType, strNode(*s.Type))
	} else {
		addPair(root, KeyType, nullNode())
	}
	addPair(root, KeyTarget, strNode(s.Target))

	inputs := mappingNode()
	for _, name := range s.InputNames() {
		v, _ := s.Input(name)
		node, err := valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("inputs.%s: %w", name, err)
		}
		addPair(inputs, name, node)
	}
	addPair(root, KeyInputs, inputs)

	outputs := mappingNode()
	for _, name := range s.OutputNames() {
		v, _ := s.Output(name)
		addPair(outputs, name, strNode(v))
	}
	addPair(root, KeyOutputs, outputs)

	validations := mappingNode()
	for _, name := range s.ValidationNames() {
		v, _ := s.Validation(name)
		addPair(validations, name, strNode(v))
	}
	addPair(root, KeyValidations, validations)

	return root, nil
}

func valueNode(v ir.Value) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nullNode(), nil
	case ir.String:
		return strNode(string(val)), nil
	case ir.List:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, elem := range val {
			node, err := valueNode(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	case ir.Dict:
		m := mappingNode()
		for _, p := range val.Pairs() {
			addPair(m, p.Key, strNode(p.Value))
		}
		return m, nil
	case ir.Object:
		return genericNode(map[string]any(val))
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// genericNode renders decoded JSON; object keys follow ir.Object.SortedKeys.
func genericNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return nullNode(), nil
	case string:
		return strNode(val), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(val)}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(string(val), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(val)}, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, elem := range val {
			node, err := genericNode(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	case map[string]any:
		m := mappingNode()
		for _, k := range ir.Object(val).SortedKeys() {
			node, err := genericNode(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			addPair(m, k, node)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported decoded value %T", v)
	}
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}
