package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/ingest"
	"github.com/lmsales/sales-hub/internal/visit"
)

func newImportCmd() *cobra.Command {
	var dryRun, remote bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import accounts and visits into the local database",
		Long: `Import accounts and visits from a JSON, YAML or CSV file into the local
database (--db). Malformed records are rejected and listed; the rest are
stored. A CSV file holds accounts when it has a name column and visits when
it has an account_id column.

Use --dry-run to validate a file without writing anything, and --remote to
upload the file to the configured server instead of the local database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return runRemoteImport(cmd, args[0], dryRun)
			}
			return runImport(cmd, args[0], dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, do not write")
	cmd.Flags().BoolVar(&remote, "remote", false, "upload to the server instead of the local database")

	return cmd
}

type importReport struct {
	File     string             `json:"file"`
	DryRun   bool               `json:"dry_run"`
	Parsed   importCounts       `json:"parsed"`
	Rejected []ingest.Rejection `json:"rejected"`
	Stored   *ingest.Result     `json:"stored,omitempty"`
}

type importCounts struct {
	Accounts int `json:"accounts"`
	Visits   int `json:"visits"`
}

func runImport(cmd *cobra.Command, path string, dryRun bool) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError}))

	batch, err := ingest.Parse(path, logger)
	if err != nil {
		return err
	}

	report := importReport{
		File:     path,
		DryRun:   dryRun,
		Parsed:   importCounts{Accounts: len(batch.Accounts), Visits: len(batch.Visits)},
		Rejected: batch.Rejected,
	}

	if !dryRun {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(database)

		res, err := ingest.Apply(cmd.Context(), batch,
			account.NewRepository(database), visit.NewRepository(database), logger)
		if err != nil {
			return err
		}
		report.Stored = &res
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printImportReport(cmd.OutOrStdout(), report)
	return nil
}

func runRemoteImport(cmd *cobra.Command, path string, dryRun bool) (err error) {
	contentType, err := ingest.ContentType(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing import file: %w", closeErr)
		}
	}()

	rep, err := newAPIClient().Import(f, contentType, dryRun)
	if err != nil {
		return err
	}

	report := importReport{
		File:     path,
		DryRun:   rep.DryRun,
		Parsed:   importCounts{Accounts: rep.Accounts, Visits: rep.Visits},
		Rejected: rep.Rejected,
		Stored:   rep.Stored,
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printImportReport(cmd.OutOrStdout(), report)
	return nil
}

func printImportReport(out io.Writer, r importReport) {
	fmt.Fprintf(out, "%s: %d accounts, %d visits valid; %d rejected\n",
		r.File, r.Parsed.Accounts, r.Parsed.Visits, len(r.Rejected))
	for _, rej := range r.Rejected {
		fmt.Fprintf(out, "  rejected %s\n", rej)
	}

	if r.Stored == nil {
		fmt.Fprintln(out, "Dry run: nothing written.")
		return
	}
	fmt.Fprintf(out, "Stored %d accounts and %d visits.\n", r.Stored.Accounts, r.Stored.Visits)
	if r.Stored.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d visits already scheduled.\n", r.Stored.Skipped)
	}
	for _, f := range r.Stored.Failed {
		fmt.Fprintf(out, "  not stored %s\n", f)
	}
}
