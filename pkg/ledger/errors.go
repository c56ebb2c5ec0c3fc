package ledger

import "errors"

// Error taxonomy shared by the stores and the transaction engine. Callers
// classify with errors.Is; every layer wraps these with context via
// fmt.Errorf("...: %w", err).
var (
	// ErrNotFound is returned when a referenced entity does not exist or
	// does not belong to the calling tenant. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or inconsistent input: bad
	// enum values, a transfer without a distinct destination account, a
	// category/kind mismatch, a paid status without a payment date.
	ErrValidation = errors.New("validation failed")

	// ErrCycleDetected is returned when re-parenting a category would make
	// its parent chain cyclic.
	ErrCycleDetected = errors.New("category cycle detected")

	// ErrHasChildren is returned when deleting a category that still has
	// child categories.
	ErrHasChildren = errors.New("category has children")

	// ErrInvalidStatusTransition is returned when a status change is not
	// allowed by the transaction state machine.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrConcurrencyConflict is returned when the database reports a
	// serialization conflict (SQLite busy/locked). Retrying the whole
	// logical operation unchanged is safe.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
