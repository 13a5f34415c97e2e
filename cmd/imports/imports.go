// Package imports contains the tabular import commands: preview, run,
// rollback, and history.
package imports

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spendwise/importer/cmd/root"
	"spendwise/importer/internal/common"
	"spendwise/importer/internal/importer"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/parsererror"
)

var (
	source     string
	account    string
	currency   string
	ledgerName string
	mapFlags   []string

	createCategories    bool
	createSubcategories bool
	createAccounts      bool

	csvOut       string
	historyLimit int

	// Cmd is the parent import command.
	Cmd = &cobra.Command{
		Use:   "import",
		Short: "Import transactions from a delimited statement export",
	}

	previewCmd = &cobra.Command{
		Use:   "preview <file>",
		Short: "Stage a file and show what an import would do, without committing",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}

	runCmd = &cobra.Command{
		Use:   "run <file>",
		Short: "Stage and commit a file as one import batch",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	rollbackCmd = &cobra.Command{
		Use:   "rollback <batch-id>",
		Short: "Delete every transaction a batch created and re-reconcile",
		Args:  cobra.ExactArgs(1),
		RunE:  runRollback,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded import batches",
		RunE:  runHistory,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{previewCmd, runCmd} {
		cmd.Flags().StringVar(&source, "source", "", "Source label stored on the batch (e.g. paytm)")
		cmd.Flags().StringVar(&account, "account", "", "Default account for rows without one")
		cmd.Flags().StringVar(&currency, "currency", "INR", "Currency applied to every row")
		cmd.Flags().StringVar(&ledgerName, "ledger", "", "Ledger name stored on every row")
		cmd.Flags().StringSliceVar(&mapFlags, "map", nil, "Column override role=index (e.g. description=2), repeatable")
	}

	previewCmd.Flags().StringVar(&csvOut, "csv", "", "Also write the staged rows as canonical CSV to this file")

	runCmd.Flags().BoolVar(&createCategories, "create-categories", false, "Create categories referenced by tags")
	runCmd.Flags().BoolVar(&createSubcategories, "create-subcategories", false, "Create subcategories referenced by tags")
	runCmd.Flags().BoolVar(&createAccounts, "create-accounts", false, "Create missing accounts at zero balance")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of batches to list")

	Cmd.AddCommand(previewCmd, runCmd, rollbackCmd, historyCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	preview, err := stage(app, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("file: %s\n", args[0])
	fmt.Printf("candidates: %d, skipped: %d\n", preview.CandidateCount, preview.SkippedCount)
	if preview.DuplicateWarning {
		fmt.Printf("warning: this file matches already-imported batch %s\n", preview.PriorBatchID)
	}
	for _, row := range preview.Staged {
		if row.SkipReason != "" {
			fmt.Printf("  row %d skipped: %s\n", row.Number, row.SkipReason)
		}
	}

	if csvOut != "" {
		out, err := os.Create(csvOut)
		if err != nil {
			return fmt.Errorf("creating CSV file: %w", err)
		}
		defer out.Close()
		if err := app.Importer.ExportCSV(preview.Token, out, root.Delimiter()); err != nil {
			return err
		}
		fmt.Printf("staged rows written to %s\n", csvOut)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	preview, err := stage(app, args[0])
	if err != nil {
		return err
	}
	if preview.DuplicateWarning {
		root.Log.Warn("file matches an already-imported batch",
			logging.Field{Key: "prior_batch", Value: preview.PriorBatchID})
	}

	summary, err := app.Importer.Confirm(preview.Token, nil, importer.Policy{
		CreateCategories:    createCategories,
		CreateSubcategories: createSubcategories,
		CreateAccounts:      createAccounts,
	})
	if err != nil {
		return err
	}

	fmt.Printf("batch %s\n", summary.BatchID)
	fmt.Printf("created: %d, duplicates: %d, skipped: %d\n",
		summary.Created, summary.Duplicates, summary.Skipped)
	if summary.CategoriesCreated+summary.SubcategoriesCreated+summary.AccountsCreated > 0 {
		fmt.Printf("created entities: %d categories, %d subcategories, %d accounts\n",
			summary.CategoriesCreated, summary.SubcategoriesCreated, summary.AccountsCreated)
	}
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Importer.Rollback(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("batch %s rolled back: %d transactions deleted, %d accounts reconciled\n",
		result.BatchID, result.Deleted, len(result.Accounts))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	batches, err := app.Importer.History(historyLimit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no import batches recorded")
		return nil
	}

	for _, batch := range batches {
		fmt.Printf("%s  %-11s %-10s created=%d dup=%d skip=%d  %s\n",
			batch.CreatedAt, batch.Status, batch.Source,
			batch.CreatedCount, batch.DuplicateCount, batch.SkippedCount, batch.ID)
	}
	return nil
}

func stage(app *root.App, path string) (*importer.Preview, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer file.Close()

	header, rows, err := common.ReadMatrix(file, root.Delimiter())
	if err != nil {
		return nil, err
	}

	overrides, err := parseMapFlags()
	if err != nil {
		return nil, err
	}
	var mapping importer.Mapping
	if len(overrides) > 0 {
		mapping = importer.InferMapping(header).Merge(overrides)
	}

	return app.Importer.Stage(importer.Matrix{Header: header, Rows: rows}, importer.StageOptions{
		Source:   source,
		Filename: path,
		Account:  account,
		Currency: currency,
		Ledger:   ledgerName,
		Mapping:  mapping,
	})
}

// parseMapFlags turns --map role=index flags into mapping overrides layered
// over header inference.
func parseMapFlags() (importer.Mapping, error) {
	if len(mapFlags) == 0 {
		return nil, nil
	}
	overrides := make(importer.Mapping, len(mapFlags))
	for _, flag := range mapFlags {
		role, index, found := strings.Cut(flag, "=")
		if !found {
			return nil, parsererror.NewMappingError(flag, "expected role=index")
		}
		parsed, err := strconv.Atoi(index)
		if err != nil {
			return nil, parsererror.NewMappingError(role, "index is not a number")
		}
		overrides[role] = parsed
	}
	return overrides, nil
}
