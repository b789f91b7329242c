// Package dberr defines the structured errors that cross the storage engine's
// boundary. Two kinds exist: TransactionAbortedError, which tells the caller
// its transaction has been chosen as a deadlock victim and must be rolled
// back, and DBError, a local failure that does not by itself abort the
// transaction.
package dberr

import (
	"errors"
	"fmt"

	"heapstore/pkg/primitives"
)

// Category classifies a DBError for handling strategy.
type Category int

const (
	// CategoryUser covers invalid input: schema mismatches, unknown tables,
	// malformed catalog lines.
	CategoryUser Category = iota

	// CategoryTransient covers conditions that may succeed on retry, such as
	// an exhausted buffer pool.
	CategoryTransient

	// CategorySystem covers I/O and environment failures requiring operator
	// attention.
	CategorySystem

	// CategoryData covers corruption: invalid page layouts, truncated WAL
	// records.
	CategoryData

	// CategoryConcurrency covers lock conflicts surfaced as errors.
	CategoryConcurrency
)

// Error codes used across the engine.
const (
	CodeAllPagesDirty  = "BUFFER_ALL_DIRTY"
	CodePageOutOfRange = "PAGE_OUT_OF_RANGE"
	CodeTableNotFound  = "TABLE_NOT_FOUND"
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodePageFull       = "PAGE_FULL"
	CodeNoSuchTuple    = "NO_SUCH_TUPLE"
	CodeInvalidPage    = "INVALID_PAGE"
	CodeWALFailure     = "WAL_FAILURE"
	CodeIOFailure      = "IO_FAILURE"
	CodeInvalidCatalog = "INVALID_CATALOG"
)

// DBError is a structured engine error.
type DBError struct {
	// Code is a stable identifier such as BUFFER_ALL_DIRTY.
	Code string

	// Category classifies the error.
	Category Category

	// Message is a human-readable description.
	Message string

	// Component names the subsystem the error originated in, e.g. "PageStore".
	Component string

	// Operation names the operation in flight, e.g. "GetPage".
	Operation string

	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *DBError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// New creates a DBError with the given category, code and message.
func New(category Category, code, message string) *DBError {
	return &DBError{Code: code, Category: category, Message: message}
}

// Newf creates a DBError with a formatted message.
func Newf(category Category, code, format string, args ...any) *DBError {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap attaches an underlying cause to a new DBError.
func Wrap(cause error, category Category, code, message string) *DBError {
	return &DBError{Code: code, Category: category, Message: message, Cause: cause}
}

// In annotates the error with its component and operation and returns it.
func (e *DBError) In(component, operation string) *DBError {
	e.Component = component
	e.Operation = operation
	return e
}

// HasCode reports whether err is (or wraps) a DBError with the given code.
func HasCode(err error, code string) bool {
	var dbe *DBError
	if errors.As(err, &dbe) {
		return dbe.Code == code
	}
	return false
}

// TransactionAbortedError signals that the transaction was chosen as a
// deadlock victim (or hit another fatal obstruction) inside GetPage. The
// caller must stop issuing operations for the transaction and complete it
// with commit=false.
type TransactionAbortedError struct {
	TID    *primitives.TransactionID
	Reason string
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("transaction %d aborted: %s", e.TID.ID(), e.Reason)
}

// NewDeadlockAbort builds the abort signal for a deadlock victim waiting on
// the given page.
func NewDeadlockAbort(tid *primitives.TransactionID, pid primitives.PageID) *TransactionAbortedError {
	return &TransactionAbortedError{
		TID:    tid,
		Reason: fmt.Sprintf("deadlock detected while waiting for %v", pid),
	}
}

// IsTransactionAborted reports whether err is (or wraps) an abort signal.
func IsTransactionAborted(err error) bool {
	var ta *TransactionAbortedError
	return errors.As(err, &ta)
}
