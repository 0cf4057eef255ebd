package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/auth"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys in the local database",
		Long:  "Create, list and revoke the API keys the server accepts. These commands work directly on the database (--db), so run them on the server host.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an API key",
			Long:  "Create an API key. The raw key is printed once; store it with 'hub login'.",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(database)

				raw, key, err := auth.NewAPIKeyStore(database).Create(joinArgs(args))
				if err != nil {
					return err
				}

				if isJSON() {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"key": raw, "api_key": key})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created API key #%d (%s):\n\n  %s\n\nIt will not be shown again.\n", key.ID, key.Name, raw)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(database)

				keys, err := auth.NewAPIKeyStore(database).List()
				if err != nil {
					return err
				}

				if isJSON() {
					if keys == nil {
						keys = []auth.APIKey{}
					}
					return printJSON(cmd.OutOrStdout(), keys)
				}
				return printKeys(cmd.OutOrStdout(), keys)
			},
		},
		&cobra.Command{
			Use:   "revoke <id>",
			Short: "Revoke an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid key ID: %s", args[0])
				}

				database, err := openDB()
				if err != nil {
					return err
				}
				defer closeDB(database)

				if err := auth.NewAPIKeyStore(database).Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked API key #%d\n", id)
				return nil
			},
		},
	)

	return cmd
}
