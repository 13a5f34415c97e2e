// Package models defines the canonical transaction model and the interchange
// CSV contract shared by every pipeline in the application.
package models

import (
	"github.com/shopspring/decimal"
)

// Direction is the side of the ledger a transaction lands on.
type Direction string

const (
	Expense Direction = "Expense"
	Income  Direction = "Income"
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool {
	return d == Expense || d == Income
}

// Recorder values identify how a transaction entered the system.
const (
	RecorderEmail  = "email"
	RecorderManual = "manual"
	RecorderImport = "import"
	RecorderAPI    = "api"
)

// Transaction is the canonical persisted record. The csv tags define the
// interchange column order; exporters and importers must not reorder them.
type Transaction struct {
	Ledger      string    `csv:"Ledger"`
	Category    string    `csv:"Category"`
	Subcategory string    `csv:"Subcategory"`
	Currency    string    `csv:"Currency"`
	Amount      Amount    `csv:"Price"`
	Account     string    `csv:"Account"`
	Recorder    string    `csv:"Recorder"`
	Date        string    `csv:"Date"`
	Time        string    `csv:"Time"`
	Merchant    string    `csv:"Note"`
	Direction   Direction `csv:"Transaction"`

	ID             int64  `csv:"-"`
	IdempotencyKey string `csv:"-"`
	BatchID        string `csv:"-"`
	CreatedAt      string `csv:"-"`
	UpdatedAt      string `csv:"-"`
}

// Candidate is a transaction proposal produced by extraction or import,
// before classification defaults and idempotency have been applied.
type Candidate struct {
	Amount      decimal.Decimal
	Currency    string
	Merchant    string
	Date        string
	Time        string
	Direction   Direction
	Category    string
	Subcategory string
	Account     string
	Ledger      string
	ExternalID  string
	Recorder    string
}
