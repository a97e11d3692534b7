package domain

import "errors"

// Sentinel errors for recoverable outcomes. Handlers map these to user-facing
// messages; anything else is an internal error.
var (
	// ErrNotFound means the record (or user) does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyCheckedOut means a checkout or request hit a record that is
	// already in someone's custody.
	ErrAlreadyCheckedOut = errors.New("record is already checked out")

	// ErrNotCheckedOut means a check-in hit a record that is not in custody.
	// Callers treat this as a no-op redirect, not a hard failure.
	ErrNotCheckedOut = errors.New("record is not checked out")

	// ErrBarcodeConflict means a batch commit collided with a concurrently
	// assigned barcode. Retryable after re-reading the last assigned barcode.
	ErrBarcodeConflict = errors.New("barcode already assigned")

	// ErrNotPending means ready-for-pickup was set on a record that is
	// neither requested nor checked out.
	ErrNotPending = errors.New("record has no pending request or checkout")
)
