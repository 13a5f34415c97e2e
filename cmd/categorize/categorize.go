// Package categorize contains the command that classifies a merchant name
// against the keyword table and manages user-defined keywords.
package categorize

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendwise/importer/cmd/root"
	"spendwise/importer/internal/classifier"
)

var (
	merchant    string
	keyword     string
	category    string
	subcategory string

	// Cmd is the categorize command.
	Cmd = &cobra.Command{
		Use:   "categorize",
		Short: "Classify a merchant name, or add a keyword rule",
		RunE:  run,
	}
)

func init() {
	Cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "Merchant name to classify")
	Cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Keyword to add as a user-defined rule")
	Cmd.Flags().StringVarP(&category, "category", "c", "", "Category for the new keyword")
	Cmd.Flags().StringVarP(&subcategory, "subcategory", "s", "", "Subcategory for the new keyword")
}

func run(cmd *cobra.Command, args []string) error {
	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if keyword != "" {
		if category == "" {
			return fmt.Errorf("--keyword requires --category")
		}
		entry := &classifier.Entry{
			Keyword:     keyword,
			Category:    category,
			Subcategory: subcategory,
			UserDefined: true,
		}
		if err := app.Store.SaveKeyword(entry); err != nil {
			return fmt.Errorf("saving keyword: %w", err)
		}
		fmt.Printf("keyword %q -> %s / %s\n", keyword, category, subcategory)
		if merchant == "" {
			return nil
		}
	}

	if merchant == "" {
		return fmt.Errorf("nothing to do: pass --merchant and/or --keyword")
	}

	entries, err := app.Store.LoadKeywords()
	if err != nil {
		return fmt.Errorf("loading keyword table: %w", err)
	}
	table := classifier.NewTable(entries, root.Log)

	match, ok := table.Classify(merchant)
	if !ok {
		fmt.Printf("%q -> %s / %s (no keyword match)\n",
			merchant, root.Cfg.Import.FallbackCategory, root.Cfg.Import.FallbackSubcategory)
		return nil
	}

	if !match.Entry.UserDefined {
		if err := app.Store.UpdateKeywordMatchCount(match.Entry); err != nil {
			return fmt.Errorf("persisting keyword counter: %w", err)
		}
	}
	fmt.Printf("%q -> %s / %s (keyword %q)\n", merchant, match.Category, match.Subcategory, match.Entry.Keyword)
	return nil
}
