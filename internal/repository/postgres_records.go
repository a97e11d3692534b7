package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"recordsmaster/internal/domain"
)

// PostgresRecordsRepository is the lib/pq-backed store for record items.
type PostgresRecordsRepository struct {
	db *sql.DB
}

func NewPostgresRecordsRepository(db *sql.DB) *PostgresRecordsRepository {
	return &PostgresRecordsRepository{db: db}
}

const recordColumns = `
	record_id::text,
	cis,
	barcode,
	record_type,
	location,
	box_number,
	digitized,
	closing_date,
	destroy_date,
	checked_out,
	requested,
	ready_for_pickup,
	checked_out_to::text,
	created_on`

func scanRecord(row interface{ Scan(...any) error }) (*domain.RecordItem, error) {
	var r domain.RecordItem
	err := row.Scan(
		&r.ID,
		&r.CIS,
		&r.Barcode,
		&r.RecordType,
		&r.Location,
		&r.BoxNumber,
		&r.Digitized,
		&r.ClosingDate,
		&r.DestroyDate,
		&r.CheckedOut,
		&r.Requested,
		&r.ReadyForPickup,
		&r.CheckedOutTo,
		&r.CreatedOn,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecord fetches one record by id.
func (p *PostgresRecordsRepository) GetRecord(ctx context.Context, recordID string) (*domain.RecordItem, error) {
	query := `SELECT` + recordColumns + ` FROM record_items WHERE record_id = $1`
	r, err := scanRecord(p.db.QueryRowContext(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListRecords queries records with optional filters and paging.
func (p *PostgresRecordsRepository) ListRecords(ctx context.Context, filters RecordFilters, page, size int) ([]*domain.RecordItem, int, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if filters.CIS != 0 {
		where = append(where, fmt.Sprintf("cis = $%d", argN))
		args = append(args, filters.CIS)
		argN++
	}
	if filters.RecordType != "" {
		where = append(where, fmt.Sprintf("record_type = $%d", argN))
		args = append(args, filters.RecordType)
		argN++
	}
	if filters.CheckedOutTo != "" {
		where = append(where, fmt.Sprintf("checked_out_to = $%d", argN))
		args = append(args, filters.CheckedOutTo)
		argN++
	}
	if filters.Requested {
		where = append(where, "requested")
	}
	if filters.CheckedOut {
		where = append(where, "checked_out")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM record_items `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	offset := (page - 1) * size

	query := `SELECT` + recordColumns + ` FROM record_items ` + whereClause +
		fmt.Sprintf(` ORDER BY barcode LIMIT $%d OFFSET $%d`, argN, argN+1)
	rows, err := p.db.QueryContext(ctx, query, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.RecordItem{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// FindByBarcode fetches one record by its barcode.
func (p *PostgresRecordsRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.RecordItem, error) {
	query := `SELECT` + recordColumns + ` FROM record_items WHERE barcode = $1`
	r, err := scanRecord(p.db.QueryRowContext(ctx, query, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// FindByBarcodeRange returns records with lower <= barcode <= upper ordered by
// barcode. Lexicographic comparison matches chronological order because the
// barcode format is fixed width.
func (p *PostgresRecordsRepository) FindByBarcodeRange(ctx context.Context, lower, upper string) ([]*domain.RecordItem, error) {
	query := `SELECT` + recordColumns + ` FROM record_items
		WHERE barcode >= $1 AND barcode <= $2
		ORDER BY barcode`
	rows, err := p.db.QueryContext(ctx, query, lower, upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.RecordItem{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastAssignedBarcode returns the barcode of the most recently created record.
func (p *PostgresRecordsRepository) LastAssignedBarcode(ctx context.Context) (string, error) {
	var barcode string
	err := p.db.QueryRowContext(ctx,
		`SELECT barcode FROM record_items ORDER BY created_on DESC, barcode DESC LIMIT 1`,
	).Scan(&barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return barcode, nil
}

// SaveBatch inserts all records in one transaction. The UNIQUE constraint on
// barcode is the last line of defense against concurrent batches; a violation
// maps to domain.ErrBarcodeConflict so the caller can retry with a re-read
// last barcode.
func (p *PostgresRecordsRepository) SaveBatch(ctx context.Context, records []*domain.RecordItem) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := `INSERT INTO record_items (
			record_id, cis, barcode, record_type, location, box_number,
			digitized, closing_date, destroy_date,
			checked_out, requested, ready_for_pickup, checked_out_to, created_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	for _, r := range records {
		_, err := tx.ExecContext(ctx, stmt,
			r.ID, r.CIS, r.Barcode, r.RecordType, r.Location, r.BoxNumber,
			r.Digitized, r.ClosingDate, r.DestroyDate,
			r.CheckedOut, r.Requested, r.ReadyForPickup, r.CheckedOutTo, r.CreatedOn,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("barcode %s: %w", r.Barcode, domain.ErrBarcodeConflict)
			}
			return fmt.Errorf("insert record barcode=%s: %w", r.Barcode, err)
		}
	}
	return tx.Commit()
}

// UpdateLocation sets the location of an existing record.
func (p *PostgresRecordsRepository) UpdateLocation(ctx context.Context, recordID, location string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE record_items SET location = $2 WHERE record_id = $1`,
		recordID, location,
	)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrNotFound)
}

// UpdateMetadata replaces the descriptive fields of a record, keyed by id.
func (p *PostgresRecordsRepository) UpdateMetadata(ctx context.Context, record *domain.RecordItem) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE record_items
		 SET record_type = $2, location = $3, box_number = $4, digitized = $5,
		     closing_date = $6, destroy_date = $7
		 WHERE record_id = $1`,
		record.ID, record.RecordType, record.Location, record.BoxNumber,
		record.Digitized, record.ClosingDate, record.DestroyDate,
	)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrNotFound)
}

// MarkRequested flags a record as requested. Refused while the record is
// checked out.
func (p *PostgresRecordsRepository) MarkRequested(ctx context.Context, recordID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE record_items SET requested = TRUE
		 WHERE record_id = $1 AND NOT checked_out`,
		recordID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return p.classify(ctx, recordID, domain.ErrAlreadyCheckedOut)
}

// MarkReadyForPickup flags a staged record. Valid only while a request or
// checkout is pending.
func (p *PostgresRecordsRepository) MarkReadyForPickup(ctx context.Context, recordID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE record_items SET ready_for_pickup = TRUE
		 WHERE record_id = $1 AND (requested OR checked_out)`,
		recordID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return p.classify(ctx, recordID, domain.ErrNotPending)
}

// Checkout assigns custody to a user and opens a history entry, atomically.
// The conditional update guarantees a single winner under concurrency.
func (p *PostgresRecordsRepository) Checkout(ctx context.Context, recordID, userID string, now time.Time) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE record_items
		 SET checked_out = TRUE, checked_out_to = $2, requested = FALSE
		 WHERE record_id = $1 AND NOT checked_out`,
		recordID, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p.classify(ctx, recordID, domain.ErrAlreadyCheckedOut)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_history (record_id, user_id, checked_out_date)
		 VALUES ($1, $2, $3)`,
		recordID, userID, now,
	)
	if err != nil {
		return fmt.Errorf("open checkout history: %w", err)
	}
	return tx.Commit()
}

// CheckIn returns a record to storage: closes the open history entry and
// clears every custody flag, atomically.
func (p *PostgresRecordsRepository) CheckIn(ctx context.Context, recordID string, now time.Time) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE record_items
		 SET checked_out = FALSE, requested = FALSE, ready_for_pickup = FALSE,
		     checked_out_to = NULL
		 WHERE record_id = $1 AND checked_out`,
		recordID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p.classify(ctx, recordID, domain.ErrNotCheckedOut)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE checkout_history SET returned_date = $2
		 WHERE id = (
		 	SELECT id FROM checkout_history
		 	WHERE record_id = $1 AND returned_date IS NULL
		 	ORDER BY checked_out_date DESC
		 	LIMIT 1
		 )`,
		recordID, now,
	)
	if err != nil {
		return fmt.Errorf("close checkout history: %w", err)
	}
	return tx.Commit()
}

// HistoryFor returns all custody intervals for a record, newest first.
func (p *PostgresRecordsRepository) HistoryFor(ctx context.Context, recordID string) ([]*domain.CheckoutHistoryEntry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, record_id::text, user_id::text, checked_out_date, returned_date
		 FROM checkout_history
		 WHERE record_id = $1
		 ORDER BY checked_out_date DESC`,
		recordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.CheckoutHistoryEntry{}
	for rows.Next() {
		var e domain.CheckoutHistoryEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.UserID, &e.CheckedOutDate, &e.ReturnedDate); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// classify resolves a zero-row conditional update into ErrNotFound or the
// given state-conflict sentinel.
func (p *PostgresRecordsRepository) classify(ctx context.Context, recordID string, conflict error) error {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM record_items WHERE record_id = $1)`, recordID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return conflict
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func oneRowOr(res sql.Result, notFound error) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}
