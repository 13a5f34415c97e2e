// Package dedupe computes idempotency keys and reserves them against the
// store so the same real-world transaction is never recorded twice.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"spendwise/importer/internal/models"
	"spendwise/importer/internal/store"
)

// Result is the outcome of a reservation attempt.
type Result int

const (
	// Invalid accompanies a non-nil error; it carries no outcome.
	Invalid Result = iota - 1
	// Accepted means the key was free and the transaction was inserted.
	Accepted
	// Duplicate means the key already existed; nothing was inserted.
	Duplicate
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	}
	return "invalid"
}

// Key derives the idempotency key for a candidate. An external message id
// wins outright; otherwise the key is a content fingerprint over the fields
// that identify a real-world transaction.
func Key(c *models.Candidate) string {
	if c.ExternalID != "" {
		return "msg:" + c.ExternalID
	}
	return "fp:" + fingerprint(
		c.Amount.String(),
		c.Date,
		models.NormalizeMerchant(c.Merchant),
		models.NormalizeMerchant(c.Account),
	)
}

// FileFingerprint hashes an entire row matrix, header included, to recognize
// a file that was already imported.
func FileFingerprint(header []string, rows [][]string) string {
	h := sha256.New()
	writeRow(h, header)
	for _, row := range rows {
		writeRow(h, row)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Reserve attempts the unique-constrained insert that claims the key. A
// Duplicate result is a normal outcome, not an error. When err is non-nil
// the result is Invalid.
func Reserve(s *store.Store, tx *models.Transaction) (Result, error) {
	if tx.IdempotencyKey == "" {
		return Invalid, fmt.Errorf("transaction has no idempotency key")
	}

	_, err := s.InsertTransaction(tx)
	if err == nil {
		return Accepted, nil
	}
	if errors.Is(err, store.ErrDuplicateKey) {
		return Duplicate, nil
	}
	return Invalid, err
}

func fingerprint(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

func writeRow(h hash.Hash, row []string) {
	h.Write([]byte(strings.Join(row, "|")))
	h.Write([]byte("\n"))
}
