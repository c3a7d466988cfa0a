/*
errors.go - Centralized error types for the daily ledger engine

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  Services and the API layer classify errors with the IsX helpers instead of
  matching on concrete types.

ERROR CATEGORIES:
  1. Validation errors  - malformed input (bad quantity, unknown product)
  2. State errors       - mutation attempted on a CLOSED ledger
  3. Conflict errors    - second ACTIVE ledger while one exists
  4. Not-found errors   - dangling ledger/expense/sale references
  5. Transport errors   - storage/network failures, never conflated with
                          the domain categories above

USAGE:
  if ledger.IsConflict(err) {
      var conflict *ledger.ConflictError
      errors.As(err, &conflict)
      // conflict.ActiveDate points at the ledger blocking creation
  }

SEE ALSO:
  - store.go: Store implementations return these errors
  - api/handlers.go: maps each category to an HTTP status
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLedgerClosed is returned for any mutation against a CLOSED ledger.
	// Closure is final: there is no reopen operation.
	ErrLedgerClosed = errors.New("ledger is closed")

	// ErrActiveLedgerExists is returned when creating a ledger while another
	// one is still ACTIVE. The single-register model allows exactly one.
	ErrActiveLedgerExists = errors.New("an active ledger already exists")

	// ErrNotFound is returned for references to nonexistent records.
	ErrNotFound = errors.New("not found")

	// ErrValidation is the root of all input-shape failures.
	ErrValidation = errors.New("validation failed")

	// ErrTransport is the root of storage/network failures. Domain code never
	// produces it directly; stores wrap their driver errors with it.
	ErrTransport = errors.New("transport failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input. Recoverable by the caller
// correcting the input; never retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-scoped validation error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports a mutation attempted against a ledger that no
// longer accepts writes, or an operation whose preconditions do not hold
// (e.g. committing an empty cart).
type InvalidStateError struct {
	LedgerID  string
	Operation string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	if e.LedgerID == "" {
		return fmt.Sprintf("%s rejected: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s rejected for ledger %s: %s", e.Operation, e.LedgerID, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return ErrLedgerClosed }

// ConflictError reports an attempt to open a second ACTIVE ledger. It carries
// a pointer to the blocking ledger so the caller can resolve the conflict
// (close the existing day first).
type ConflictError struct {
	ActiveLedgerID string
	ActiveDate     Date
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("active ledger already exists for %s (id: %s)", e.ActiveDate, e.ActiveLedgerID)
}

func (e *ConflictError) Unwrap() error { return ErrActiveLedgerExists }

// NotFoundError reports a dangling reference.
type NotFoundError struct {
	Kind string // "ledger", "expense", "product"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransportError wraps storage-level failures. It exists so that a broken
// database connection is never reported to callers as a domain rejection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure in %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// WrapTransport tags a driver error with the failing operation. Domain errors
// pass through untouched so classification survives store boundaries.
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsInvalidState(err) || IsConflict(err) || IsNotFound(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// =============================================================================
// CLASSIFIERS
// =============================================================================

// IsValidation reports whether the error is due to malformed input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInvalidState reports whether the error is a rejected state transition.
func IsInvalidState(err error) bool { return errors.Is(err, ErrLedgerClosed) }

// IsConflict reports whether the error is the single-active-ledger conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrActiveLedgerExists) }

// IsNotFound reports whether the error is a dangling reference.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTransport reports whether the error came from the storage layer.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }
