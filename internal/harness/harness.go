package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/stepnorm/internal/stepimpl"
	"github.com/roach88/stepnorm/internal/store"
)

// Run normalizes the scenario document and evaluates its expectations.
//
// Each scenario runs against a fresh in-memory database for isolation.
// A returned error means the scenario could not be executed at all;
// expectation failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	normalizer := stepimpl.NewNormalizer(
		stepimpl.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	result := NewResult()
	rec, normErr := normalizer.Parse([]byte(scenario.Document))
	if normErr != nil {
		result.Err = normErr.Error()
	} else {
		result.Record = &rec
	}

	if scenario.ExpectError != nil {
		for _, msg := range checkExpectedError(normErr, scenario.ExpectError) {
			result.AddError(msg)
		}
		return result, nil
	}

	if normErr != nil {
		result.AddError(fmt.Sprintf("normalize: %v", normErr))
		return result, nil
	}

	actx := &AssertionContext{
		Ctx:   ctx,
		Store: st,
	}
	for _, msg := range EvaluateAssertions(rec, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func checkExpectedError(err error, want *ErrorExpectation) []string {
	if err == nil {
		return []string{"expected normalization to fail, but it succeeded"}
	}

	var failures []string
	if want.Path != "" || want.Field != "" {
		var malformed *stepimpl.MalformedError
		if !errors.As(err, &malformed) {
			return []string{fmt.Sprintf("expected a malformed element error, got: %v", err)}
		}
		if want.Path != "" && malformed.Path != want.Path {
			failures = append(failures, fmt.Sprintf("error path: expected %q, got %q", want.Path, malformed.Path))
		}
		if want.Field != "" && malformed.Field != want.Field {
			failures = append(failures, fmt.Sprintf("error field: expected %q, got %q", want.Field, malformed.Field))
		}
	}
	if want.Contains != "" && !strings.Contains(err.Error(), want.Contains) {
		failures = append(failures, fmt.Sprintf("error message: expected to contain %q, got %q", want.Contains, err.Error()))
	}
	return failures
}
