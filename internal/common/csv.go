// Package common holds the canonical CSV codec shared by the export and
// import surfaces.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/models"
)

// Header is the interchange column order. Consumers depend on these exact
// names and positions.
var Header = []string{
	"Ledger", "Category", "Subcategory", "Currency", "Price",
	"Account", "Recorder", "Date", "Time", "Note", "Transaction",
}

// WriteTransactions renders transactions as canonical CSV.
func WriteTransactions(w io.Writer, transactions []*models.Transaction, delimiter rune) error {
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		writer := csv.NewWriter(out)
		writer.Comma = delimiter
		return gocsv.NewSafeCSVWriter(writer)
	})

	if err := gocsv.Marshal(&transactions, w); err != nil {
		return fmt.Errorf("writing transactions CSV: %w", err)
	}
	return nil
}

// WriteTransactionsFile renders transactions as canonical CSV to a file.
func WriteTransactionsFile(path string, transactions []*models.Transaction, delimiter rune, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetLogger()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("failed to close CSV file")
		}
	}()

	if err := WriteTransactions(file, transactions, delimiter); err != nil {
		return err
	}

	logger.Info("wrote transactions CSV",
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "count", Value: len(transactions)})
	return nil
}

// ReadTransactions parses canonical CSV.
func ReadTransactions(r io.Reader, delimiter rune) ([]*models.Transaction, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		reader := csv.NewReader(in)
		reader.Comma = delimiter
		return reader
	})

	var transactions []*models.Transaction
	if err := gocsv.Unmarshal(r, &transactions); err != nil {
		return nil, fmt.Errorf("parsing transactions CSV: %w", err)
	}
	return transactions, nil
}

// ReadMatrix reads an arbitrary delimited file into a header plus row matrix
// for the import pipeline. Ragged rows are tolerated.
func ReadMatrix(r io.Reader, delimiter rune) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading delimited file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("file has no rows")
	}
	return records[0], records[1:], nil
}
