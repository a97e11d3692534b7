package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordsmaster/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresRecordsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresRecordsRepository(db)
}

var recordRows = []string{
	"record_id", "cis", "barcode", "record_type", "location", "box_number",
	"digitized", "closing_date", "destroy_date",
	"checked_out", "requested", "ready_for_pickup", "checked_out_to", "created_on",
}

func TestGetRecord_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordRows).
		AddRow("rec-1", 12345, "25-00001", "PS", "Shelf 4", 17,
			true, nil, nil, false, false, false, nil, created)

	mock.ExpectQuery(`SELECT(.|\s)*FROM record_items WHERE record_id`).
		WithArgs("rec-1").
		WillReturnRows(rows)

	r, err := repo.GetRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "25-00001", r.Barcode)
	assert.Equal(t, 12345, r.CIS)
	assert.True(t, r.Location.Valid)
	assert.Equal(t, "Shelf 4", r.Location.String)
	assert.False(t, r.CheckedOut)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.|\s)*FROM record_items WHERE record_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLastAssignedBarcode_EmptyStore(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT barcode FROM record_items ORDER BY created_on DESC`).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.LastAssignedBarcode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSaveBatch_CommitsAllRows(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO record_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO record_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records := []*domain.RecordItem{
		{ID: "a", CIS: 1, Barcode: "25-00001", RecordType: "PS", CreatedOn: time.Now()},
		{ID: "b", CIS: 2, Barcode: "25-00002", RecordType: "FC", CreatedOn: time.Now()},
	}
	require.NoError(t, repo.SaveBatch(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatch_UniqueViolationMapsToBarcodeConflict(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO record_items`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "record_items_barcode_key"})
	mock.ExpectRollback()

	records := []*domain.RecordItem{
		{ID: "a", CIS: 1, Barcode: "25-00001", RecordType: "PS", CreatedOn: time.Now()},
	}
	err := repo.SaveBatch(context.Background(), records)
	assert.ErrorIs(t, err, domain.ErrBarcodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_OpensHistoryInSameTransaction(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE record_items`).
		WithArgs("rec-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO checkout_history`).
		WithArgs("rec-1", "user-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Checkout(context.Background(), "rec-1", "user-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_AlreadyCheckedOut(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE record_items`).
		WithArgs("rec-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Checkout(context.Background(), "rec-1", "user-2", time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyCheckedOut)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_MissingRecord(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE record_items`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.Checkout(context.Background(), "missing", "user-1", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckIn_ClosesLatestOpenHistory(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE record_items`).
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE checkout_history SET returned_date`).
		WithArgs("rec-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CheckIn(context.Background(), "rec-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIn_NotCheckedOut(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE record_items`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CheckIn(context.Background(), "rec-1", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotCheckedOut)
}

func TestFindByBarcodeRange_OrdersByBarcode(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	created := time.Now()
	rows := sqlmock.NewRows(recordRows).
		AddRow("a", 1, "25-00001", "PS", nil, nil, false, nil, nil, false, false, false, nil, created).
		AddRow("b", 2, "25-00002", "FC", nil, nil, false, nil, nil, false, false, false, nil, created)

	mock.ExpectQuery(`WHERE barcode >= \$1 AND barcode <= \$2`).
		WithArgs("25-00001", "25-00010").
		WillReturnRows(rows)

	records, err := repo.FindByBarcodeRange(context.Background(), "25-00001", "25-00010")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "25-00001", records[0].Barcode)
	assert.Equal(t, "25-00002", records[1].Barcode)
}
