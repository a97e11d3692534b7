package repository

import (
	"context"
	"time"

	"recordsmaster/internal/domain"
)

// RecordsRepository is the store boundary for record items and their custody
// history. Lifecycle mutations are conditional updates: two concurrent
// checkouts of the same record can never both succeed, the loser gets
// domain.ErrAlreadyCheckedOut (and symmetrically for check-in).
type RecordsRepository interface {
	// Queries
	GetRecord(ctx context.Context, recordID string) (*domain.RecordItem, error)
	ListRecords(ctx context.Context, filters RecordFilters, page, size int) ([]*domain.RecordItem, int, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.RecordItem, error)
	FindByBarcodeRange(ctx context.Context, lower, upper string) ([]*domain.RecordItem, error)

	// LastAssignedBarcode returns the barcode of the most recently created
	// record, or "" when the store is empty.
	LastAssignedBarcode(ctx context.Context) (string, error)

	// SaveBatch inserts all records in one transaction; either every row is
	// persisted or none. A duplicate barcode surfaces as
	// domain.ErrBarcodeConflict.
	SaveBatch(ctx context.Context, records []*domain.RecordItem) error

	// Field updates
	UpdateLocation(ctx context.Context, recordID, location string) error

	// UpdateMetadata replaces the descriptive fields of a record (location,
	// box number, digitized, closing/destroy dates). Lifecycle flags and the
	// barcode are untouched.
	UpdateMetadata(ctx context.Context, record *domain.RecordItem) error

	// Lifecycle transitions (each atomic per record)
	MarkRequested(ctx context.Context, recordID string) error
	MarkReadyForPickup(ctx context.Context, recordID string) error
	Checkout(ctx context.Context, recordID, userID string, now time.Time) error
	CheckIn(ctx context.Context, recordID string, now time.Time) error

	// History
	HistoryFor(ctx context.Context, recordID string) ([]*domain.CheckoutHistoryEntry, error)
}

// RecordFilters narrows ListRecords. Zero values mean "no filter".
type RecordFilters struct {
	CIS          int    // exact case number
	RecordType   string // exact record type
	CheckedOutTo string // records held by this user
	Requested    bool   // only records with a pending request
	CheckedOut   bool   // only records currently out
}

// UsersRepository manages accounts and role assignment.
type UsersRepository interface {
	ListUsers(ctx context.Context) ([]*domain.AppUser, error)
	GetUser(ctx context.Context, userID string) (*domain.AppUser, error)
	EnsureUser(ctx context.Context, email string, role domain.Role) (string, error)
	SetRole(ctx context.Context, userID string, role domain.Role) error
}
