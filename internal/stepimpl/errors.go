package stepimpl

import (
	"errors"
	"fmt"
)

// ErrMalformed is the sentinel wrapped by every MalformedError.
var ErrMalformed = errors.New("malformed step implementation")

// MalformedError reports a section or array element that does not have the
// shape its section requires.
type MalformedError struct {
	Path   string // e.g. "inputs[2]" or "[0].mapInputs[1].values[3]"
	Field  string // missing field name, empty when the node itself is wrong
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: missing field %q", e.Path, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}
