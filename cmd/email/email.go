// Package email contains the command that ingests a single notification
// message: match a template, extract, classify, record, reconcile.
package email

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendwise/importer/cmd/root"
	"spendwise/importer/internal/classifier"
	"spendwise/importer/internal/dedupe"
	"spendwise/importer/internal/extractor"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/template"
)

var (
	file      string
	sender    string
	subject   string
	messageID string
	tmplName  string

	// Cmd is the email ingest command.
	Cmd = &cobra.Command{
		Use:   "email",
		Short: "Ingest a bank notification message",
		Long: `Reads notification text from a file or stdin, picks the matching
extraction template, and records the resulting transaction. Messages seen
before (same message id or content fingerprint) are ignored.`,
		RunE: run,
	}
)

func init() {
	Cmd.Flags().StringVarP(&file, "file", "f", "", "Message text file (default stdin)")
	Cmd.Flags().StringVar(&sender, "sender", "", "Message sender, used for template matching")
	Cmd.Flags().StringVar(&subject, "subject", "", "Message subject, used for template matching")
	Cmd.Flags().StringVar(&messageID, "message-id", "", "Stable message id for deduplication")
	Cmd.Flags().StringVarP(&tmplName, "template", "t", "", "Template name (skips sender/subject matching)")
}

func run(cmd *cobra.Command, args []string) error {
	text, err := readMessage()
	if err != nil {
		return err
	}

	templates, err := template.LoadDir(root.Cfg.Templates.Directory)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	tmpl, err := pick(templates)
	if err != nil {
		return err
	}

	app, err := root.OpenApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ext := extractor.New(root.Log)
	record, err := ext.Extract(tmpl, text)
	if err != nil {
		return fmt.Errorf("extracting message: %w", err)
	}
	for _, warning := range record.Warnings {
		root.Log.Warn(warning, logging.Field{Key: "template", Value: tmpl.Name})
	}

	entries, err := app.Store.LoadKeywords()
	if err != nil {
		return fmt.Errorf("loading keyword table: %w", err)
	}
	table := classifier.NewTable(entries, root.Log)

	candidate := ext.Candidate(tmpl, record, messageID)
	tx, result, err := app.Ledger.Record(&candidate, table)
	if err != nil {
		return err
	}

	if result == dedupe.Duplicate {
		fmt.Printf("duplicate: transaction already recorded (key %s)\n", tx.IdempotencyKey)
		return nil
	}
	fmt.Printf("recorded #%d: %s %s %s / %s on %s (%s)\n",
		tx.ID, tx.Amount.StringFixed(2), tx.Currency, tx.Category, tx.Subcategory, tx.Date, tx.Direction)
	return nil
}

func pick(templates []template.Template) (*template.Template, error) {
	if tmplName != "" {
		for i := range templates {
			if templates[i].Name == tmplName {
				return &templates[i], nil
			}
		}
		return nil, fmt.Errorf("template %q not found", tmplName)
	}

	tmpl, ok := template.Match(templates, sender, subject)
	if !ok {
		return nil, fmt.Errorf("no template matches sender %q subject %q", sender, subject)
	}
	return tmpl, nil
}

func readMessage() (string, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading message file: %w", err)
	}
	return string(data), nil
}
