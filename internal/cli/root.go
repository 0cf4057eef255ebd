// Package cli defines the cobra command tree for the sales hub.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/client"
	"github.com/lmsales/sales-hub/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hub",
		Short:         "Plan sales visits and track account health",
		Long:          "Sales Hub keeps accounts and visits, builds a prioritized daily visit plan, flags overdue and stale accounts, and tracks prospect health. Use the CLI against a running server, or manage the local database directly.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagFormat != "text" && flagFormat != "json" {
				return fmt.Errorf("invalid --format %q (must be text or json)", flagFormat)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/hub/hub.db)")

	root.AddCommand(
		newAccountCmd(),
		newNoteCmd(),
		newVisitCmd(),
		newPlanCmd(),
		newProspectsCmd(),
		newImportCmd(),
		newDigestCmd(),
		newKeysCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// dbPath returns the --db flag, then HUB_DB, then the default path.
func dbPath() (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	if v := os.Getenv("HUB_DB"); v != "" {
		return v, nil
	}
	return db.DefaultPath()
}

// openDB opens the SQLite database. Used by commands that work on the
// local store instead of the API.
func openDB() (*sql.DB, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the sales hub API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
