// Package export contains the command that writes recorded transactions as
// canonical CSV.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spendwise/importer/cmd/root"
	"spendwise/importer/internal/common"
	"spendwise/importer/internal/models"
)

var (
	output  string
	from    string
	to      string
	account string

	// Cmd is the export command.
	Cmd = &cobra.Command{
		Use:   "export",
		Short: "Export transactions as canonical CSV",
		RunE:  run,
	}
)

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	Cmd.Flags().StringVar(&from, "from", "0000-01-01", "Start date (YYYY-MM-DD, inclusive)")
	Cmd.Flags().StringVar(&to, "to", "9999-12-31", "End date (YYYY-MM-DD, inclusive)")
	Cmd.Flags().StringVar(&account, "account", "", "Only this account")
}

func run(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var transactions []*models.Transaction
	if account != "" {
		transactions, err = app.Store.ListTransactionsByAccount(account)
		if err == nil {
			transactions = filterByDate(transactions, from, to)
		}
	} else {
		transactions, err = app.Store.ListTransactionsByDateRange(from, to)
	}
	if err != nil {
		return err
	}

	if output == "" {
		return common.WriteTransactions(os.Stdout, transactions, root.Delimiter())
	}
	if err := common.WriteTransactionsFile(output, transactions, root.Delimiter(), root.Log); err != nil {
		return err
	}
	fmt.Printf("%d transactions written to %s\n", len(transactions), output)
	return nil
}

func filterByDate(transactions []*models.Transaction, from, to string) []*models.Transaction {
	filtered := transactions[:0]
	for _, tx := range transactions {
		if tx.Date >= from && tx.Date <= to {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
