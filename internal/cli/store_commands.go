package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/store"
)

// InitDBCommand creates the init-db command
func InitDBCommand() *cobra.Command {
	var dbConnStr string

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the catalog tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), dbConnStr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.store.InitDB(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialized successfully (%s).\n", describeStore(rt.cfg.DataStore))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	return cmd
}

// ImportCategoriesCommand creates the import-categories command
func ImportCategoriesCommand() *cobra.Command {
	var (
		file      string
		dbConnStr string
	)

	cmd := &cobra.Command{
		Use:   "import-categories",
		Short: "Insert a category tree, parents before children",
		Long: `Read a {"categories": [{"id", "name", "parent": {"id"}}]} document and insert
every category after its ancestors. Existing categories are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open categories file: %w", err)
			}
			defer f.Close()

			cats, err := catalog.ParseCategories(f)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), dbConnStr)
			if err != nil {
				return err
			}
			defer rt.Close()

			err = rt.store.WithTx(cmd.Context(), func(w *store.Writer) error {
				return w.InsertCategories(cmd.Context(), cats)
			})
			if err != nil {
				return fmt.Errorf("failed to import categories: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories.\n", len(cats))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the categories document (required)")
	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// StatsCommand creates the stats command
func StatsCommand() *cobra.Command {
	var dbConnStr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts of the catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), dbConnStr)
			if err != nil {
				return err
			}
			defer rt.Close()

			counts, err := rt.store.Counts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store: %s\n", describeStore(rt.cfg.DataStore))
			fmt.Fprintf(out, "  categories:               %d\n", counts.Categories)
			fmt.Fprintf(out, "  products:                 %d\n", counts.Products)
			fmt.Fprintf(out, "  parameters:               %d\n", counts.Parameters)
			fmt.Fprintf(out, "  parameter_values:         %d\n", counts.ParameterValues)
			fmt.Fprintf(out, "  product_parameter_values: %d\n", counts.ProductParameterValues)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbConnStr, "db", "", "Database connection string or sqlite path (overrides env var)")
	return cmd
}

// RunInitDB is the CLI wrapper function for init-db command
func RunInitDB(ctx context.Context, args []string) error {
	cmd := InitDBCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// RunImportCategories is the CLI wrapper function for import-categories command
func RunImportCategories(ctx context.Context, args []string) error {
	cmd := ImportCategoriesCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// RunStats is the CLI wrapper function for stats command
func RunStats(ctx context.Context, args []string) error {
	cmd := StatsCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
