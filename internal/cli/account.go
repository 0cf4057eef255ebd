package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/client"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage accounts",
		Long:    "Add, list, inspect and remove customer and prospect accounts.",
	}

	cmd.AddCommand(
		newAccountAddCmd(),
		newAccountListCmd(),
		newAccountShowCmd(),
		newAccountRemoveCmd(),
		newAccountContactCmd(),
	)

	return cmd
}

func newAccountAddCmd() *cobra.Command {
	var req client.AccountRequest

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update an account",
		Long: `Add an account, or replace an existing one when --id matches.

Classifications: active_customer, prospect, inactive
Frequencies: weekly, biweekly, monthly, none

Examples:
  hub account add "Corner Bakery" --city Lyon --classification active_customer --frequency weekly
  hub account add "New Lead"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = joinArgs(args)
			if err := validateAccountRequest(req); err != nil {
				return err
			}

			a, err := newAPIClient().SaveAccount(req)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved account %s (%s)\n", a.Name, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "account ID (default: generated)")
	cmd.Flags().StringVar(&req.City, "city", "", "city")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVarP(&req.Classification, "classification", "c", string(account.Prospect), "active_customer, prospect or inactive")
	cmd.Flags().StringVarP(&req.Frequency, "frequency", "f", string(account.None), "visit frequency: weekly, biweekly, monthly or none")

	return cmd
}

// validateAccountRequest checks enumerated fields before calling the server.
func validateAccountRequest(req client.AccountRequest) error {
	if req.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if !account.Classification(req.Classification).IsValid() {
		return fmt.Errorf("invalid classification %q (must be active_customer, prospect or inactive)", req.Classification)
	}
	if !account.Frequency(req.Frequency).IsValid() {
		return fmt.Errorf("invalid frequency %q (must be weekly, biweekly, monthly or none)", req.Frequency)
	}
	return nil
}

func newAccountListCmd() *cobra.Command {
	var classification string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Long:  "List all accounts, optionally filtered by classification.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if classification != "" && !account.Classification(classification).IsValid() {
				return fmt.Errorf("invalid classification %q", classification)
			}

			accounts, err := newAPIClient().ListAccounts(classification)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), accounts)
			}
			return printAccountTable(cmd.OutOrStdout(), accounts)
		},
	}

	cmd.Flags().StringVarP(&classification, "classification", "c", "", "filter by classification")

	return cmd
}

func newAccountShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show account details",
		Long:  "Show an account with its health, visits and notes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newAPIClient().GetAccount(args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printAccountDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account",
		Long:  "Remove an account together with its visits and notes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient().DeleteAccount(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", args[0])
			return nil
		},
	}
}

func newAccountContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <id>",
		Short: "Record a phone or email contact",
		Long:  "Mark the account as contacted now. Prospect health counts this like a completed visit.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAPIClient().MarkContacted(args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as contacted\n", a.Name)
			return nil
		},
	}
}
