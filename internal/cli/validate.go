package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stepnorm/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Many bool // input is a JSON array of documents
}

// ValidateResult is the payload of a clean lint.
type ValidateResult struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
}

// RenderText prints a one-line confirmation.
func (r ValidateResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ %s: well-formed\n", r.Name)
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Lint document shape",
		Long: `Check a raw step implementation document against the embedded CUE schema.

The lint is stricter than normalization: it reports every shape problem
with its line and column instead of stopping at the first one.

Exit codes:
  0 - Document is well-formed
  1 - Shape issues found
  2 - Command error (unreadable input)

Examples:
  stepnorm validate step.json
  stepnorm validate --many steps.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Many, "many", false, "input is a JSON array of documents")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, path string) error {
	formatter := opts.formatter(cmd)

	name, data, err := readInput(cmd, path)
	if err != nil {
		return loadErrorExit(formatter, err)
	}

	validator, err := schema.New()
	if err != nil {
		if outErr := formatter.Error(ErrCodeSchemaLoad, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	var issues []schema.Issue
	if opts.Many {
		issues = validator.ValidateMany(name, data)
	} else {
		issues = validator.Validate(name, data)
	}

	if len(issues) > 0 {
		return outputValidationIssues(formatter, name, issues)
	}
	return formatter.Success(ValidateResult{Name: name, Status: "well-formed"})
}

// outputValidationIssues outputs lint issues and returns an exit error.
func outputValidationIssues(formatter *OutputFormatter, name string, issues []schema.Issue) error {
	message := fmt.Sprintf("%d issue(s) in %s", len(issues), name)

	if formatter.Format != "text" {
		if err := formatter.Error(ErrCodeSchemaIssues, message, issues); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	w := formatter.Writer
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "%s:%s\n", name, issue)
		} else {
			fmt.Fprintf(w, "%s: %s\n", name, issue)
		}
	}
	fmt.Fprintf(w, "✗ %s\n", message)
	return NewExitError(ExitFailure, message)
}
