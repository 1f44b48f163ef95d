package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepnorm/internal/ir"
)

// Scenario defines a conformance scenario: one raw document, and what its
// normalization must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the raw step implementation JSON text.
	Document string `yaml:"document"`

	// ExpectError, when set, requires normalization to fail.
	ExpectError *ErrorExpectation `yaml:"expect_error,omitempty"`

	// Assertions validate the normalized record.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ErrorExpectation describes a required normalization failure.
// Empty fields are not checked.
type ErrorExpectation struct {
	// Path is the MalformedError path, e.g. "inputs[1]".
	Path string `yaml:"path,omitempty"`

	// Field is the missing field name.
	Field string `yaml:"field,omitempty"`

	// Contains is a substring of the error message.
	Contains string `yaml:"contains,omitempty"`
}

// Assertion validates one aspect of the normalized record.
type Assertion struct {
	// Type specifies the assertion type:
	// - "type": record type equals Value; omitted or null Value means no type
	// - "target": record target equals Value
	// - "input": canonical JSON of input Name equals JSON
	// - "input_kind": input Name has variant Kind
	// - "input_order": input names equal Names, in order
	// - "output": output Name equals Value
	// - "validation": validation Name equals Value
	// - "canonical": canonical JSON of the whole record equals JSON
	// - "stored": record survives a store write and read unchanged
	Type string `yaml:"type"`

	// Name is the input, output or validation name.
	Name string `yaml:"name,omitempty"`

	// Value is the expected string value.
	Value *string `yaml:"value,omitempty"`

	// JSON is expected canonical JSON text.
	JSON string `yaml:"json,omitempty"`

	// Kind is the expected input variant (null, string, list, dict, object).
	Kind string `yaml:"kind,omitempty"`

	// Names is the expected input order.
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertType       = "type"
	AssertTarget     = "target"
	AssertInput      = "input"
	AssertInputKind  = "input_kind"
	AssertInputOrder = "input_order"
	AssertOutput     = "output"
	AssertValidation = "validation"
	AssertCanonical  = "canonical"
	AssertStored     = "stored"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document == "" {
		return fmt.Errorf("document is required")
	}

	if s.ExpectError == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	if s.ExpectError != nil && len(s.Assertions) > 0 {
		return fmt.Errorf("assertions cannot be combined with expect_error")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertType, AssertStored:
	case AssertTarget:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for target", index)
		}
	case AssertInput:
		if a.Name == "" || a.JSON == "" {
			return fmt.Errorf("assertions[%d]: name and json are required for input", index)
		}
	case AssertInputKind:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for input_kind", index)
		}
		switch a.Kind {
		case ir.KindNull, ir.KindString, ir.KindList, ir.KindDict, ir.KindObject:
		default:
			return fmt.Errorf("assertions[%d]: unknown kind %q for input_kind", index, a.Kind)
		}
	case AssertInputOrder:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names list is required for input_order", index)
		}
	case AssertOutput, AssertValidation:
		if a.Name == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: name and value are required for %s", index, a.Type)
		}
	case AssertCanonical:
		if a.JSON == "" {
			return fmt.Errorf("assertions[%d]: json is required for canonical", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
