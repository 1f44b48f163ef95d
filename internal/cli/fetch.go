package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stepnorm/internal/client"
	"github.com/roach88/stepnorm/internal/stepimpl"
	"github.com/roach88/stepnorm/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	URL     string // overrides server.url
	Records bool   // print full records instead of summaries
	Store   bool
	DB      string
}

// FetchedComponent is one leaf component with its normalized task.
type FetchedComponent struct {
	ID     string                       `json:"id" yaml:"id"`
	Name   string                       `json:"name" yaml:"name"`
	Record stepimpl.StepImplementation `json:"record" yaml:"record"`
}

// FetchResult is the payload of a successful fetch.
type FetchResult struct {
	Server     string             `json:"server" yaml:"server"`
	Components []FetchedComponent `json:"components" yaml:"components"`
	Import     *ImportSummary     `json:"import,omitempty" yaml:"import,omitempty"`

	records bool
}

// RenderText prints one line per component.
func (r FetchResult) RenderText(w io.Writer) error {
	for _, c := range r.Components {
		if r.records {
			data, err := c.Record.Canonical()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", c.Name, data)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Record.Summary())
	}
	fmt.Fprintf(w, "%d component(s) from %s\n", len(r.Components), r.Server)
	return nil
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and normalize components from a server",
		Long: `Fetch every component from the configured server and normalize the
task of each leaf component.

Server location and credentials come from config (server.url,
server.username, server.password) or STEPNORM_SERVER_* variables.

Exit codes:
  0 - All components fetched and normalized
  1 - A component task is malformed
  2 - Command error (server unreachable, store unavailable)

Examples:
  stepnorm fetch
  stepnorm fetch --url https://chutney.example.com --records
  stepnorm fetch --store --db steps.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "server base URL (default from config server.url)")
	cmd.Flags().BoolVar(&opts.Records, "records", false, "print canonical records instead of summaries")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "persist the normalized records")
	cmd.Flags().StringVar(&opts.DB, "db", "", "store path (default from config store.path)")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *FetchOptions) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	cfg := opts.loadedConfig()

	baseURL := cfg.Server.URL
	if opts.URL != "" {
		baseURL = opts.URL
	}

	c, err := client.New(client.Options{
		BaseURL:    baseURL,
		Username:   cfg.Server.Username,
		Password:   cfg.Server.Password,
		Timeout:    cfg.Server.Timeout,
		Retries:    cfg.Server.Retries,
		Normalizer: stepimpl.NewNormalizer(stepimpl.WithLogger(logger)),
		Logger:     logger,
	})
	if err != nil {
		if outErr := formatter.Error(ErrCodeFetchFailed, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to create client", err)
	}

	components, err := c.FetchComponents(cmd.Context())
	if err != nil {
		code, exit := ErrCodeFetchFailed, ExitCommandError
		if errors.Is(err, stepimpl.ErrMalformed) {
			code, exit = ErrCodeMalformed, ExitFailure
		}
		if outErr := formatter.Error(code, err.Error(), MalformedDetails(err)); outErr != nil {
			return outErr
		}
		return WrapExitError(exit, "failed to fetch components", err)
	}

	leaves := client.Leaves(components)
	formatter.VerboseLog("Fetched %d component(s), %d leaf task(s)", len(components), len(leaves))

	result := FetchResult{
		Server:     baseURL,
		Components: make([]FetchedComponent, 0, len(leaves)),
		records:    opts.Records,
	}
	items := make([]store.NamedImplementation, 0, len(leaves))
	for _, leaf := range leaves {
		result.Components = append(result.Components, FetchedComponent{ID: leaf.ID, Name: leaf.Name, Record: *leaf.Task})
		items = append(items, store.NamedImplementation{Name: leaf.Name, Implementation: *leaf.Task})
	}

	if opts.Store {
		summary, err := importRecords(cmd.Context(), opts.dbPath(opts.DB), baseURL, items)
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
