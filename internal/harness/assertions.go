package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/jsontree"
	"github.com/roach88/stepnorm/internal/stepimpl"
	"github.com/roach88/stepnorm/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the full record to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Record   string // Canonical JSON of the record
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Record != "" {
		fmt.Fprintf(&buf, "\nRecord:\n  %s\n", e.Record)
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the record.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(rec stepimpl.StepImplementation, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(rec, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(rec stepimpl.StepImplementation, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertType:
		return assertType(rec, a)
	case AssertTarget:
		return compareString(rec, AssertTarget, *a.Value, rec.Target, true)
	case AssertInput:
		return assertInput(rec, a)
	case AssertInputKind:
		return assertInputKind(rec, a)
	case AssertInputOrder:
		return assertInputOrder(rec, a)
	case AssertOutput:
		v, ok := rec.Output(a.Name)
		return compareString(rec, AssertOutput+" "+a.Name, *a.Value, v, ok)
	case AssertValidation:
		v, ok := rec.Validation(a.Name)
		return compareString(rec, AssertValidation+" "+a.Name, *a.Value, v, ok)
	case AssertCanonical:
		return assertCanonical(rec, a)
	case AssertStored:
		return assertStored(rec, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func recordText(rec stepimpl.StepImplementation) string {
	data, err := rec.Canonical()
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(data)
}

func assertType(rec stepimpl.StepImplementation, a Assertion) error {
	switch {
	case a.Value == nil && rec.Type == nil:
		return nil
	case a.Value != nil && rec.Type != nil && *a.Value == *rec.Type:
		return nil
	}
	expected, actual := "no type", "no type"
	if a.Value != nil {
		expected = strconv.Quote(*a.Value)
	}
	if rec.Type != nil {
		actual = strconv.Quote(*rec.Type)
	}
	return &AssertionError{Type: AssertType, Expected: expected, Actual: actual, Record: recordText(rec)}
}

func compareString(rec stepimpl.StepImplementation, what, expected, actual string, found bool) error {
	if !found {
		return &AssertionError{Type: what, Expected: strconv.Quote(expected), Actual: "absent", Record: recordText(rec)}
	}
	if expected != actual {
		return &AssertionError{Type: what, Expected: strconv.Quote(expected), Actual: strconv.Quote(actual), Record: recordText(rec)}
	}
	return nil
}

// compactJSON normalizes hand-written expected JSON without reordering keys.
func compactJSON(text string) (string, error) {
	node, err := jsontree.ParseString(text)
	if err != nil {
		return "", fmt.Errorf("expected json %q: %w", text, err)
	}
	return node.Raw(), nil
}

func assertInput(rec stepimpl.StepImplementation, a Assertion) error {
	expected, err := compactJSON(a.JSON)
	if err != nil {
		return err
	}
	v, ok := rec.Input(a.Name)
	if !ok {
		return &AssertionError{Type: AssertInput + " " + a.Name, Expected: expected, Actual: "absent", Record: recordText(rec)}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("input %s: %w", a.Name, err)
	}
	if string(data) != expected {
		return &AssertionError{Type: AssertInput + " " + a.Name, Expected: expected, Actual: string(data), Record: recordText(rec)}
	}
	return nil
}

func assertInputKind(rec stepimpl.StepImplementation, a Assertion) error {
	v, ok := rec.Input(a.Name)
	if !ok {
		return &AssertionError{Type: AssertInputKind + " " + a.Name, Expected: a.Kind, Actual: "absent", Record: recordText(rec)}
	}
	if kind := ir.KindOf(v); kind != a.Kind {
		return &AssertionError{Type: AssertInputKind + " " + a.Name, Expected: a.Kind, Actual: kind, Record: recordText(rec)}
	}
	return nil
}

func assertInputOrder(rec stepimpl.StepImplementation, a Assertion) error {
	actual := rec.InputNames()
	if len(actual) == len(a.Names) {
		same := true
		for i := range actual {
			if actual[i] != a.Names[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertInputOrder,
		Expected: fmt.Sprintf("%v", a.Names),
		Actual:   fmt.Sprintf("%v", actual),
		Record:   recordText(rec),
	}
}

func assertCanonical(rec stepimpl.StepImplementation, a Assertion) error {
	expected, err := compactJSON(a.JSON)
	if err != nil {
		return err
	}
	if actual := recordText(rec); actual != expected {
		return &AssertionError{Type: AssertCanonical, Expected: expected, Actual: actual}
	}
	return nil
}

// assertStored writes the record and reads it back by ID.
func assertStored(rec stepimpl.StepImplementation, actx *AssertionContext) error {
	if actx == nil || actx.Store == nil {
		return errors.New("stored: no store available")
	}
	entry, err := store.NewEntry(rec, "", "scenario", "scenario")
	if err != nil {
		return fmt.Errorf("stored: %w", err)
	}
	if _, _, err := actx.Store.WriteImplementation(actx.Ctx, entry); err != nil {
		return fmt.Errorf("stored: %w", err)
	}
	back, err := actx.Store.ReadImplementation(actx.Ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("stored: %w", err)
	}
	if expected, actual := recordText(rec), recordText(back.Implementation); expected != actual {
		return &AssertionError{Type: AssertStored, Expected: expected, Actual: actual}
	}
	return nil
}
