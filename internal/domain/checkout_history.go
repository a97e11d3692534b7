package domain

import (
	"database/sql"
	"time"
)

// CheckoutHistoryEntry is one custody interval for a record
// (corresponds to the checkout_history table).
//
// For a given record at most one entry has a null ReturnedDate, and that
// entry exists exactly when the record itself is checked out.
type CheckoutHistoryEntry struct {
	ID             int64        `db:"id"`               // BIGSERIAL
	RecordID       string       `db:"record_id"`        // NOT NULL, FK record_items
	UserID         string       `db:"user_id"`          // NOT NULL
	CheckedOutDate time.Time    `db:"checked_out_date"` // NOT NULL
	ReturnedDate   sql.NullTime `db:"returned_date"`    // null while custody is open
}

// Open reports whether the entry is the record's open custody interval.
func (e *CheckoutHistoryEntry) Open() bool {
	return !e.ReturnedDate.Valid
}

// ToJSON converts the entry to the HTTP response shape.
func (e *CheckoutHistoryEntry) ToJSON() map[string]any {
	m := map[string]any{
		"id":               e.ID,
		"record_id":        e.RecordID,
		"user_id":          e.UserID,
		"checked_out_date": e.CheckedOutDate.Format(time.RFC3339),
	}
	if e.ReturnedDate.Valid {
		m["returned_date"] = e.ReturnedDate.Time.Format(time.RFC3339)
	} else {
		m["returned_date"] = nil
	}
	return m
}
