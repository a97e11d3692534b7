package domain

import (
	"database/sql"
	"time"
)

// Record types accepted by the system. The set is closed; bulk ingestion
// rejects anything else.
const (
	RecordTypePS = "PS"
	RecordTypeFC = "FC"
	RecordTypeEX = "EX"
	RecordTypeFS = "FS"
)

// RecordTypes lists the allowed record types in display order.
var RecordTypes = []string{RecordTypePS, RecordTypeFC, RecordTypeEX, RecordTypeFS}

// ValidRecordType reports whether t is a member of the allowed set.
func ValidRecordType(t string) bool {
	for _, v := range RecordTypes {
		if t == v {
			return true
		}
	}
	return false
}

// RecordItem is a physical case file tracked by the system
// (corresponds to the record_items table).
type RecordItem struct {
	// Primary key, assigned at creation, immutable.
	ID string `db:"record_id"`

	// External case reference ("CIS number").
	CIS int `db:"cis"` // NOT NULL

	// Barcode in YY-NNNNN form, assigned by the sequencer, immutable once set.
	Barcode string `db:"barcode"` // NOT NULL, UNIQUE

	// One of RecordTypes.
	RecordType string `db:"record_type"` // NOT NULL

	// Descriptive metadata.
	Location    sql.NullString `db:"location"`     // nullable
	BoxNumber   sql.NullInt64  `db:"box_number"`   // nullable, positive
	Digitized   bool           `db:"digitized"`    // NOT NULL, default false
	ClosingDate sql.NullTime   `db:"closing_date"` // nullable
	DestroyDate sql.NullTime   `db:"destroy_date"` // nullable, retention marker only

	// Custody state. CheckedOutTo is non-null iff CheckedOut is true.
	CheckedOut     bool           `db:"checked_out"`      // NOT NULL, default false
	Requested      bool           `db:"requested"`        // NOT NULL, default false
	ReadyForPickup bool           `db:"ready_for_pickup"` // NOT NULL, default false
	CheckedOutTo   sql.NullString `db:"checked_out_to"`   // nullable user id

	CreatedOn time.Time `db:"created_on"` // NOT NULL, default CURRENT_TIMESTAMP
}

// ToJSON converts the record to the HTTP response shape.
func (r *RecordItem) ToJSON() map[string]any {
	m := map[string]any{
		"id":               r.ID,
		"cis":              r.CIS,
		"barcode":          r.Barcode,
		"record_type":      r.RecordType,
		"digitized":        r.Digitized,
		"checked_out":      r.CheckedOut,
		"requested":        r.Requested,
		"ready_for_pickup": r.ReadyForPickup,
		"created_on":       r.CreatedOn.Format(time.RFC3339),
	}
	if r.Location.Valid {
		m["location"] = r.Location.String
	}
	if r.BoxNumber.Valid {
		m["box_number"] = r.BoxNumber.Int64
	}
	if r.ClosingDate.Valid {
		m["closing_date"] = r.ClosingDate.Time.Format("2006-01-02")
	}
	if r.DestroyDate.Valid {
		m["destroy_date"] = r.DestroyDate.Time.Format("2006-01-02")
	}
	if r.CheckedOutTo.Valid {
		m["checked_out_to"] = r.CheckedOutTo.String
	}
	return m
}
