package harness

import "github.com/roach88/stepnorm/internal/stepimpl"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the expected error (if any) matched
	// and every assertion held.
	Pass bool `json:"pass"`

	// Record is the normalized record, nil when normalization failed.
	Record *stepimpl.StepImplementation `json:"record,omitempty"`

	// Err is the normalization error message, if any.
	Err string `json:"error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
