package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/stepnorm/internal/stepimpl"
	"github.com/roach88/stepnorm/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	DB       string
	Type     string
	Untyped  bool
	ImportID string
	Limit    int
	Counts   bool // print per-type counts instead of entries
}

// ListedEntry is the output view of a stored entry.
type ListedEntry struct {
	Seq      int64                       `json:"seq" yaml:"seq"`
	ID       string                      `json:"id" yaml:"id"`
	Name     string                      `json:"name,omitempty" yaml:"name,omitempty"`
	Source   string                      `json:"source" yaml:"source"`
	ImportID string                      `json:"import_id" yaml:"import_id"`
	Record   stepimpl.StepImplementation `json:"record" yaml:"record"`
}

// ListResult is the payload of list.
type ListResult struct {
	Entries []ListedEntry `json:"entries" yaml:"entries"`
}

// RenderText prints one line per entry.
func (r ListResult) RenderText(w io.Writer) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No implementations stored.")
		return err
	}
	for _, e := range r.Entries {
		name := e.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Seq, shortID(e.ID), name, e.Record.Summary())
	}
	return nil
}

// CountResult is the payload of list --counts.
type CountResult struct {
	Counts map[string]int `json:"counts" yaml:"counts"`
}

// RenderText prints counts sorted by type; untyped records show as <untyped>.
func (r CountResult) RenderText(w io.Writer) error {
	types := make([]string, 0, len(r.Counts))
	for t := range r.Counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		label := t
		if label == "" {
			label = "<untyped>"
		}
		fmt.Fprintf(w, "%s\t%d\n", label, r.Counts[t])
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored implementations",
		Long: `List stored step implementations in store order.

Exit codes:
  0 - Success
  2 - Command error (database not found, etc.)

Examples:
  stepnorm list --db steps.db
  stepnorm list --type http-get
  stepnorm list --untyped --format json
  stepnorm list --counts`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "store path (default from config store.path)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only records of this type")
	cmd.Flags().BoolVar(&opts.Untyped, "untyped", false, "only records without a type")
	cmd.Flags().StringVar(&opts.ImportID, "import", "", "only records from this import")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 = all)")
	cmd.Flags().BoolVar(&opts.Counts, "counts", false, "print record counts per type")
	cmd.MarkFlagsMutuallyExclusive("type", "untyped")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	formatter := opts.formatter(cmd)
	dbPath := opts.dbPath(opts.DB)

	// Don't create an empty database by listing it
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if outErr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return storeFailure(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Counts {
		counts, err := st.CountByType(ctx)
		if err != nil {
			return storeFailure(formatter, err)
		}
		return formatter.Success(CountResult{Counts: counts})
	}

	entries, err := st.ListImplementations(ctx, store.Filter{
		Type:     opts.Type,
		Untyped:  opts.Untyped,
		ImportID: opts.ImportID,
		Limit:    opts.Limit,
	})
	if err != nil {
		return storeFailure(formatter, err)
	}
	formatter.VerboseLog("Read %d entr(ies) from %s", len(entries), dbPath)

	result := ListResult{Entries: make([]ListedEntry, len(entries))}
	for i, e := range entries {
		result.Entries[i] = ListedEntry{
			Seq:      e.Seq,
			ID:       e.ID,
			Name:     e.Name,
			Source:   e.Source,
			ImportID: e.ImportID,
			Record:   e.Implementation,
		}
	}
	return formatter.Success(result)
}

func storeFailure(formatter *OutputFormatter, err error) error {
	if outErr := formatter.Error(ErrCodeStoreFailed, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "store error", err)
}
