// Package reconcile contains the balance reconciliation and account
// management commands.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"spendwise/importer/cmd/root"
	"spendwise/importer/internal/parsererror"
)

var (
	createName     string
	initialBalance string

	// Cmd is the reconcile command.
	Cmd = &cobra.Command{
		Use:   "reconcile [account]",
		Short: "Recompute account balances from the transaction log",
		Long: `Recomputes balances as initial balance plus income minus expense. With an
account argument only that account is reconciled; without one, all accounts
are. A conflict with a concurrent writer is reported as retryable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}
)

func init() {
	Cmd.Flags().StringVar(&createName, "create", "", "Create an account with this name first")
	Cmd.Flags().StringVar(&initialBalance, "initial", "0", "Initial balance for --create")
}

func run(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if createName != "" {
		balance, err := decimal.NewFromString(initialBalance)
		if err != nil {
			return fmt.Errorf("invalid initial balance %q: %w", initialBalance, err)
		}
		account, err := app.Store.CreateAccount(createName, balance)
		if err != nil {
			return fmt.Errorf("creating account: %w", err)
		}
		fmt.Printf("account %q created with balance %s\n", account.Name, account.CurrentBalance.StringFixed(2))
	}

	names := args
	if len(names) == 0 {
		accounts, err := app.Store.ListAccounts()
		if err != nil {
			return err
		}
		for _, account := range accounts {
			names = append(names, account.Name)
		}
	}

	for _, name := range names {
		if err := app.Ledger.Reconcile(name); err != nil {
			if parsererror.IsRetryable(err) {
				return fmt.Errorf("%w (retry the command)", err)
			}
			return err
		}
		account, err := app.Store.GetAccount(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %s\n", account.Name, account.CurrentBalance.StringFixed(2))
	}
	return nil
}
