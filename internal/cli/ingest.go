package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/ingest"
	"catalog-ingest/internal/pipeline"
	"catalog-ingest/internal/store"
)

// IngestCommand creates the ingest command
func IngestCommand() *cobra.Command {
	var (
		file      string
		dbConnStr string
		dryRun    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Normalize a catalog export and write it to the store",
		Long: `Read one catalog export document ({"products": [...]}), keep the records in the
allowed categories, normalize them and insert products, parameters, parameter
values and their associations. The whole file is one transaction.

Examples:
  # Ingest an export file
  ./catalog-ingest ingest --file=offers.json

  # Read from stdin and print the summary as JSON
  cat offers.json | ./catalog-ingest ingest --file=- --json

  # Show what would be written without touching the database
  ./catalog-ingest ingest --file=offers.json --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd.OutOrStdout(), file, dbConnStr, dryRun, asJSON)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the export document, '-' for stdin (required)")
	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize and reconcile without writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch summary as JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runIngest(ctx context.Context, out io.Writer, file, dbConnStr string, dryRun, asJSON bool) error {
	records, err := readBatch(file)
	if err != nil {
		return err
	}

	var summary *pipeline.Summary
	if dryRun {
		cfg, err := loadConfig(dbConnStr)
		if err != nil {
			return err
		}
		p := pipeline.New(cfg.AllowList(), cfg.NewLogger())
		summary, err = p.Run(ctx, records, discardWriter{})
		if err != nil {
			return err
		}
	} else {
		rt, err := openRuntime(ctx, dbConnStr)
		if err != nil {
			return err
		}
		defer rt.Close()

		p := pipeline.New(rt.cfg.AllowList(), rt.logger)
		summary, err = p.Process(ctx, rt.store, records)
		if err != nil {
			return fmt.Errorf("batch rolled back: %w", err)
		}
	}

	return printSummary(out, summary, dryRun, asJSON)
}

func readBatch(file string) ([]catalog.RawRecord, error) {
	if file == "-" {
		return ingest.DecodeBatch(os.Stdin)
	}
	return ingest.DecodeBatchFile(file)
}

func printSummary(out io.Writer, s *pipeline.Summary, dryRun, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	if dryRun {
		fmt.Fprintf(out, "DRY RUN - nothing was written\n")
	}
	fmt.Fprintf(out, "Run %s\n", s.RunID)
	fmt.Fprintf(out, "  received:   %d\n", s.Received)
	fmt.Fprintf(out, "  ineligible: %d\n", s.Ineligible)
	fmt.Fprintf(out, "  invalid:    %d\n", s.Invalid)
	fmt.Fprintf(out, "  written:    %d products, %d parameters, %d values\n", s.Written, s.Parameters, s.Values)
	for _, r := range s.Rejected {
		fmt.Fprintf(out, "  - record %d (%s): %s %s\n", r.Index, r.ProductID, r.Field, r.Reason)
	}
	return nil
}

// discardWriter accepts every product without writing it.
type discardWriter struct{}

func (discardWriter) WriteProduct(context.Context, *catalog.NormalizedProduct, []store.MappedParameter) error {
	return nil
}

// RunIngest is the CLI wrapper function for ingest command
func RunIngest(ctx context.Context, args []string) error {
	cmd := IngestCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
