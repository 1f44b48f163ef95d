package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stepnorm/internal/stepimpl"
	"github.com/roach88/stepnorm/internal/store"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Many  bool   // input is a JSON array of documents
	Store bool   // persist records
	DB    string // store path, defaults to store.path from config
}

// NormalizeResult is the payload of a successful normalize.
type NormalizeResult struct {
	Records []stepimpl.StepImplementation `json:"records" yaml:"records"`
	Import  *ImportSummary                `json:"import,omitempty" yaml:"import,omitempty"`
}

// RenderText prints one canonical record per line.
func (r NormalizeResult) RenderText(w io.Writer) error {
	for _, rec := range r.Records {
		data, err := rec.Canonical()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	}
	return nil
}

// ImportSummary describes records written by one import.
type ImportSummary struct {
	ImportID string `json:"import_id" yaml:"import_id"`
	DB       string `json:"db" yaml:"db"`
	Inserted int    `json:"inserted" yaml:"inserted"`
	Skipped  int    `json:"skipped" yaml:"skipped"`
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("import %s: %d stored, %d already present (%s)", s.ImportID, s.Inserted, s.Skipped, s.DB)
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <file|->",
		Short: "Normalize step implementation documents",
		Long: `Normalize a raw step implementation document into its canonical record.

Reads a file, or stdin when the argument is "-". With --many the input
must be a JSON array of documents; the first malformed element fails
the whole batch.

Exit codes:
  0 - All documents normalized
  1 - Input is not JSON or an element is malformed
  2 - Command error (unreadable input, store unavailable)

Examples:
  stepnorm normalize step.json
  stepnorm normalize --many steps.json --store
  cat step.json | stepnorm normalize - --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Many, "many", false, "input is a JSON array of documents")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "persist the normalized records")
	cmd.Flags().StringVar(&opts.DB, "db", "", "store path (default from config store.path)")

	return cmd
}

func runNormalize(cmd *cobra.Command, opts *NormalizeOptions, path string) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	name, data, err := readInput(cmd, path)
	if err != nil {
		return loadErrorExit(formatter, err)
	}

	normalizer := stepimpl.NewNormalizer(stepimpl.WithLogger(logger))
	var records []stepimpl.StepImplementation
	if opts.Many {
		records, err = normalizer.ParseMany(data)
	} else {
		var rec stepimpl.StepImplementation
		rec, err = normalizer.Parse(data)
		records = []stepimpl.StepImplementation{rec}
	}
	if err == nil {
		err = checkEncodable(records)
	}
	if err != nil {
		if outErr := formatter.Error(MapNormalizeErrorToCode(err), err.Error(), MalformedDetails(err)); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to normalize %s", name), err)
	}
	formatter.VerboseLog("Normalized %d record(s) from %s", len(records), name)

	result := NormalizeResult{Records: records}
	if opts.Store {
		items := make([]store.NamedImplementation, len(records))
		for i, rec := range records {
			items[i] = store.NamedImplementation{Implementation: rec}
		}
		summary, err := importRecords(cmd.Context(), opts.dbPath(opts.DB), name, items)
		if err != nil {
			return storeFailure(formatter, err)
		}
		logger.Info("stored records", "import_id", summary.ImportID, "inserted", summary.Inserted, "skipped", summary.Skipped)
		result.Import = summary
		if opts.Format == "text" {
			fmt.Fprintln(formatter.diagnostics(), summary)
		}
	}

	return formatter.Success(result)
}

// checkEncodable fails on the first record without a canonical encoding.
func checkEncodable(records []stepimpl.StepImplementation) error {
	for i, rec := range records {
		if _, err := rec.Canonical(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// importRecords writes items to the store at dbPath under one import ID.
func importRecords(ctx context.Context, dbPath, source string, items []store.NamedImplementation) (*ImportSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dbPath, err)
	}
	defer st.Close()

	res, err := st.ImportImplementations(ctx, source, items)
	if err != nil {
		return nil, err
	}
	return &ImportSummary{
		ImportID: res.ImportID,
		DB:       dbPath,
		Inserted: res.Inserted,
		Skipped:  res.Skipped,
	}, nil
}
