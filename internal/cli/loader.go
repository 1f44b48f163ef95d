package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/jsontree"
	"github.com/roach88/stepnorm/internal/stepimpl"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeReadFailed  = "E003" // Input could not be read
	ErrCodeStoreFailed = "E004" // Store open/read/write error
	ErrCodeFetchFailed = "E005" // Server request failed
	ErrCodeSchemaLoad  = "E006" // Embedded schema failed to compile

	// Document errors
	ErrCodeInvalidJSON  = "E101" // Input is not JSON
	ErrCodeMalformed    = "E102" // Element lacks a required field or has the wrong shape
	ErrCodeSchemaIssues = "E103" // Lint found shape issues
	ErrCodeUnencodable  = "E104" // Record cannot be canonically encoded

	// Harness
	ErrCodeTestFailed = "E201" // One or more scenarios failed
)

// stdinName is the display name used for documents read from stdin.
const stdinName = "<stdin>"

// readInput reads a document from a path, or from stdin when path is "-".
// It returns the display name alongside the bytes.
func readInput(cmd *cobra.Command, path string) (string, []byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return stdinName, nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading stdin: %v", err)}
		}
		return stdinName, data, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return path, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return path, nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return path, data, nil
}

// LoadError represents an error that occurred while reading input.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapNormalizeErrorToCode maps a normalization error to an error code.
func MapNormalizeErrorToCode(err error) string {
	var malformed *stepimpl.MalformedError
	switch {
	case errors.As(err, &malformed), errors.Is(err, stepimpl.ErrMalformed):
		return ErrCodeMalformed
	case errors.Is(err, jsontree.ErrInvalidJSON):
		return ErrCodeInvalidJSON
	case errors.Is(err, ir.ErrInvalidUTF8):
		return ErrCodeUnencodable
	default:
		return ErrCodeGeneric
	}
}

// MalformedDetails extracts structured details from a normalization error.
func MalformedDetails(err error) map[string]string {
	var malformed *stepimpl.MalformedError
	if !errors.As(err, &malformed) {
		return nil
	}
	details := map[string]string{"path": malformed.Path}
	if malformed.Field != "" {
		details["field"] = malformed.Field
	}
	if malformed.Reason != "" {
		details["reason"] = malformed.Reason
	}
	return details
}

// loadErrorExit reports a LoadError through the formatter and converts it
// to an ExitError.
func loadErrorExit(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	if outErr := f.Error(loadErr.Code, loadErr.Message, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to read input", err)
}
