// Package parsererror defines the typed errors shared by the extraction and
// import pipelines. Callers branch on these types to decide whether a failure
// is terminal, retryable, or simply a row to skip.
package parsererror

import (
	"errors"
	"fmt"
)

// MissingFieldError indicates that a required template field produced no match
// in the notification text.
type MissingFieldError struct {
	Template string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("template %q: required field %q not found in text", e.Template, e.Field)
}

// NewMissingFieldError creates a MissingFieldError for the given template and field.
func NewMissingFieldError(template, field string) *MissingFieldError {
	return &MissingFieldError{Template: template, Field: field}
}

// TransformError indicates that a captured value could not be normalized by
// the field's transform.
type TransformError struct {
	Field string
	Raw   string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("field %q: cannot transform %q: %v", e.Field, e.Raw, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// NewTransformError creates a TransformError wrapping the underlying cause.
func NewTransformError(field, raw string, err error) *TransformError {
	return &TransformError{Field: field, Raw: raw, Err: err}
}

// InvalidAmountError indicates an amount that parsed but is not usable, for
// example zero or negative after normalization.
type InvalidAmountError struct {
	Raw    string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Raw, e.Reason)
}

// NewInvalidAmountError creates an InvalidAmountError.
func NewInvalidAmountError(raw, reason string) *InvalidAmountError {
	return &InvalidAmountError{Raw: raw, Reason: reason}
}

// ValidationError indicates a template that fails load-time validation.
type ValidationError struct {
	Template string
	Detail   string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template %q: %s: %v", e.Template, e.Detail, e.Err)
	}
	return fmt.Sprintf("template %q: %s", e.Template, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError.
func NewValidationError(template, detail string, err error) *ValidationError {
	return &ValidationError{Template: template, Detail: detail, Err: err}
}

// MappingError indicates a column mapping that references a header or index
// the row matrix does not have.
type MappingError struct {
	Column string
	Detail string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("column mapping %q: %s", e.Column, e.Detail)
}

// NewMappingError creates a MappingError.
func NewMappingError(column, detail string) *MappingError {
	return &MappingError{Column: column, Detail: detail}
}

// ReconciliationConflictError indicates that a balance recomputation lost a
// race for the account and should be retried.
type ReconciliationConflictError struct {
	Account string
	Err     error
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("reconciliation conflict on account %q: %v", e.Account, e.Err)
}

func (e *ReconciliationConflictError) Unwrap() error {
	return e.Err
}

// NewReconciliationConflictError creates a ReconciliationConflictError.
func NewReconciliationConflictError(account string, err error) *ReconciliationConflictError {
	return &ReconciliationConflictError{Account: account, Err: err}
}

// IsRetryable reports whether the error represents a transient condition the
// caller may retry.
func IsRetryable(err error) bool {
	var conflict *ReconciliationConflictError
	return errors.As(err, &conflict)
}
