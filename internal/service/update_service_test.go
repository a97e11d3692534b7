package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"
)

func seedUpdateRecord(t *testing.T, repo *repository.MemoryRecordsRepository, cis int, bc string) {
	t.Helper()
	require.NoError(t, repo.SaveBatch(context.Background(), []*domain.RecordItem{{
		ID:         bc,
		CIS:        cis,
		Barcode:    bc,
		RecordType: domain.RecordTypePS,
		Location:   sql.NullString{String: "Old Shelf", Valid: true},
		CreatedOn:  time.Now().UTC(),
	}}))
}

func TestUpdateFromCSV_AppliesMetadata(t *testing.T) {
	repo := repository.NewMemoryRecordsRepository()
	seedUpdateRecord(t, repo, 1001, "25-00001")
	seedUpdateRecord(t, repo, 1002, "25-00002")
	svc := NewUpdateService(repo, zap.NewNop())

	csv := ingestHeader +
		"1001,25-00001,FC,9,New Shelf,YES,2021-03-01,\n" +
		"1002,25-00002,PS,,,,,\n"

	n, err := svc.UpdateFromCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r, err := repo.FindByBarcode(context.Background(), "25-00001")
	require.NoError(t, err)
	assert.Equal(t, "FC", r.RecordType)
	assert.Equal(t, "New Shelf", r.Location.String)
	assert.Equal(t, int64(9), r.BoxNumber.Int64)
	assert.True(t, r.Digitized)
	assert.True(t, r.ClosingDate.Valid)

	// Blank cells clear optional fields.
	r, err = repo.FindByBarcode(context.Background(), "25-00002")
	require.NoError(t, err)
	assert.False(t, r.Location.Valid)
}

func TestUpdateFromCSV_RejectsCaseNumberMismatch(t *testing.T) {
	repo := repository.NewMemoryRecordsRepository()
	seedUpdateRecord(t, repo, 1001, "25-00001")
	svc := NewUpdateService(repo, zap.NewNop())

	csv := ingestHeader + "9999,25-00001,FC,,,,,\n"

	_, err := svc.UpdateFromCSV(context.Background(), strings.NewReader(csv))
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, 2, verrs[0].Row)
	assert.Contains(t, verrs[0].Message, "does not match")

	// Nothing changed.
	r, err := repo.FindByBarcode(context.Background(), "25-00001")
	require.NoError(t, err)
	assert.Equal(t, "PS", r.RecordType)
}

func TestUpdateFromCSV_UnknownBarcodeAndMissingBarcode(t *testing.T) {
	repo := repository.NewMemoryRecordsRepository()
	seedUpdateRecord(t, repo, 1001, "25-00001")
	svc := NewUpdateService(repo, zap.NewNop())

	csv := ingestHeader +
		"1001,99-99999,PS,,,,,\n" +
		"1001,,PS,,,,,\n"

	_, err := svc.UpdateFromCSV(context.Background(), strings.NewReader(csv))
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Contains(t, verrs[0].Message, "no record with barcode")
	assert.Contains(t, verrs[1].Message, "missing barcode")
}

func TestUpdateFromCSV_AllOrNothing(t *testing.T) {
	repo := repository.NewMemoryRecordsRepository()
	seedUpdateRecord(t, repo, 1001, "25-00001")
	svc := NewUpdateService(repo, zap.NewNop())

	csv := ingestHeader +
		"1001,25-00001,FC,,,,,\n" + // valid
		"1001,25-00099,PS,,,,,\n" // unknown barcode

	_, err := svc.UpdateFromCSV(context.Background(), strings.NewReader(csv))
	require.Error(t, err)

	r, err := repo.FindByBarcode(context.Background(), "25-00001")
	require.NoError(t, err)
	assert.Equal(t, "PS", r.RecordType, "valid row must not apply when the batch is rejected")
}
