package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"

	"go.uber.org/zap"
)

// UpdateService applies metadata corrections from a CSV file. Unlike
// ingestion, rows here name existing records: the barcode column locates the
// record and the case number must match it, guarding against a file built
// from a stale export.
type UpdateService interface {
	UpdateFromCSV(ctx context.Context, r io.Reader) (int, error)
}

type updateService struct {
	records repository.RecordsRepository
	logger  *zap.Logger
}

func NewUpdateService(records repository.RecordsRepository, logger *zap.Logger) UpdateService {
	return &updateService{records: records, logger: logger}
}

// UpdateFromCSV validates every row before touching anything, then applies
// the updates. Returns the number of records updated.
func (s *updateService) UpdateFromCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if len(raw) <= 1 {
		return 0, ValidationErrors{{Row: 2, Message: "file contains no data rows"}}
	}

	type pending struct {
		record *domain.RecordItem
		row    parsedRow
	}

	var rowErrs ValidationErrors
	updates := make([]pending, 0, len(raw)-1)
	for i, fields := range raw[1:] {
		rowNum := i + 2
		parsed, errs := parseRow(rowNum, fields)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}

		bc := strings.TrimSpace(fields[1])
		if bc == "" {
			rowErrs = append(rowErrs, RowError{rowNum, "missing barcode"})
			continue
		}
		record, err := s.records.FindByBarcode(ctx, bc)
		if err != nil {
			if err == domain.ErrNotFound {
				rowErrs = append(rowErrs, RowError{rowNum, fmt.Sprintf("no record with barcode %q", bc)})
				continue
			}
			return 0, fmt.Errorf("find record barcode=%s: %w", bc, err)
		}
		if record.CIS != parsed.cis {
			rowErrs = append(rowErrs, RowError{rowNum, fmt.Sprintf(
				"case number %d does not match record %s (has %d)", parsed.cis, bc, record.CIS)})
			continue
		}
		updates = append(updates, pending{record: record, row: parsed})
	}
	if len(rowErrs) > 0 {
		s.logger.Info("csv update rejected",
			zap.Int("rows", len(raw)-1),
			zap.Int("errors", len(rowErrs)),
		)
		return 0, rowErrs
	}

	for _, u := range updates {
		u.record.RecordType = u.row.recordType
		u.record.Location = u.row.location
		u.record.BoxNumber = u.row.boxNumber
		u.record.Digitized = u.row.digitized
		u.record.ClosingDate = u.row.closingDate
		u.record.DestroyDate = u.row.destroyDate
		if err := s.records.UpdateMetadata(ctx, u.record); err != nil {
			return 0, fmt.Errorf("update record barcode=%s: %w", u.record.Barcode, err)
		}
	}

	s.logger.Info("csv update applied", zap.Int("records", len(updates)))
	return len(updates), nil
}
