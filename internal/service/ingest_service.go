package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"recordsmaster/internal/barcode"
	"recordsmaster/internal/domain"
	"recordsmaster/internal/notify"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// minIngestColumns is the mandatory positional prefix:
	// caseNumber, barcode(ignored), recordType, boxNumber, location,
	// digitized, closingDate, destroyDate. Trailing columns are ignored.
	minIngestColumns = 8

	// saveBatchRetries bounds retries after a duplicate-barcode commit
	// conflict. Each retry re-reads the last assigned barcode.
	saveBatchRetries = 3
)

// dateLayouts accepted in CSV date cells, tried in order.
var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006", time.RFC3339}

// RowError is one validation failure, numbered by file row (header = row 1,
// first data row = 2).
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ValidationErrors carries every accumulated row failure of a rejected batch.
type ValidationErrors []RowError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// IngestResult reports a committed batch.
type IngestResult struct {
	Accepted     []*domain.RecordItem
	FirstBarcode string
	LastBarcode  string
}

// LabelHook runs after a successful commit, e.g. to queue label printing.
// It must not fail the ingestion.
type LabelHook func(ctx context.Context, records []*domain.RecordItem)

// IngestService turns raw CSV into persisted records: validate every row,
// reject the whole file if any row fails, otherwise assign consecutive
// barcodes and commit the batch as a unit.
type IngestService interface {
	Ingest(ctx context.Context, r io.Reader) (*IngestResult, error)
}

type ingestService struct {
	records  repository.RecordsRepository
	cache    store.KV
	notifier notify.Notifier
	logger   *zap.Logger
	hook     LabelHook
	now      func() time.Time

	// mu serializes barcode assignment across concurrent batches; the
	// unique constraint on barcode is the last line of defense.
	mu sync.Mutex
}

func NewIngestService(
	records repository.RecordsRepository,
	cache store.KV,
	notifier notify.Notifier,
	logger *zap.Logger,
	hook LabelHook,
) IngestService {
	return &ingestService{
		records:  records,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		hook:     hook,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// parsedRow holds one validated data row before barcode assignment.
type parsedRow struct {
	cis         int
	recordType  string
	boxNumber   sql.NullInt64
	location    sql.NullString
	digitized   bool
	closingDate sql.NullTime
	destroyDate sql.NullTime
}

func (s *ingestService) Ingest(ctx context.Context, r io.Reader) (*IngestResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(raw) <= 1 {
		return nil, ValidationErrors{{Row: 2, Message: "file contains no data rows"}}
	}

	// Row 1 is the header; mapping is positional, the header is not consulted.
	rows := make([]parsedRow, 0, len(raw)-1)
	var rowErrs ValidationErrors
	for i, fields := range raw[1:] {
		rowNum := i + 2
		parsed, errs := parseRow(rowNum, fields)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		rows = append(rows, parsed)
	}
	if len(rowErrs) > 0 {
		s.logger.Info("csv batch rejected",
			zap.Int("rows", len(raw)-1),
			zap.Int("errors", len(rowErrs)),
		)
		return nil, rowErrs
	}

	records, err := s.assignAndCommit(ctx, rows)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		Accepted:     records,
		FirstBarcode: records[0].Barcode,
		LastBarcode:  records[len(records)-1].Barcode,
	}
	s.logger.Info("csv batch committed",
		zap.Int("records", len(records)),
		zap.String("first_barcode", result.FirstBarcode),
		zap.String("last_barcode", result.LastBarcode),
	)

	if err := s.cache.Set(ctx, store.KeyLastBarcode, result.LastBarcode, 0); err != nil {
		s.logger.Warn("last-barcode cache write failed", zap.Error(err))
	}
	s.notifier.Notify(ctx, notify.EventBatchIngested, map[string]any{
		"count":         len(records),
		"first_barcode": result.FirstBarcode,
		"last_barcode":  result.LastBarcode,
	})
	if s.hook != nil {
		s.hook(ctx, records)
	}
	return result, nil
}

// assignAndCommit serializes barcode assignment, threads the sequence through
// the batch in row order and saves it in one transaction. A duplicate-barcode
// conflict means another writer got there first: re-read and retry.
func (s *ingestService) assignAndCommit(ctx context.Context, rows []parsedRow) ([]*domain.RecordItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for attempt := 0; ; attempt++ {
		last, err := s.records.LastAssignedBarcode(ctx)
		if err != nil {
			return nil, fmt.Errorf("read last barcode: %w", err)
		}
		s.warnOnSequenceGap(last, now)

		records := make([]*domain.RecordItem, len(rows))
		for i, row := range rows {
			last = barcode.Next(last, now)
			records[i] = &domain.RecordItem{
				ID:          uuid.NewString(),
				CIS:         row.cis,
				Barcode:     last,
				RecordType:  row.recordType,
				BoxNumber:   row.boxNumber,
				Location:    row.location,
				Digitized:   row.digitized,
				ClosingDate: row.closingDate,
				DestroyDate: row.destroyDate,
				CreatedOn:   now,
			}
		}

		err = s.records.SaveBatch(ctx, records)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, domain.ErrBarcodeConflict) || attempt >= saveBatchRetries {
			return nil, fmt.Errorf("save batch: %w", err)
		}
		s.logger.Warn("barcode conflict on commit, retrying with fresh sequence",
			zap.Int("attempt", attempt+1),
		)
	}
}

// warnOnSequenceGap flags the silent sequence reset that follows a multi-year
// gap (or a clock that moved backwards). The reset itself is intended
// behavior; the log line is the diagnostic.
func (s *ingestService) warnOnSequenceGap(last string, now time.Time) {
	if !barcode.Valid(last) {
		return
	}
	current := now.Year() % 100
	prev := barcode.Year(last)
	if prev == current || prev == current-1 {
		return
	}
	s.logger.Warn("barcode sequence resetting across year gap",
		zap.String("last_barcode", last),
		zap.Int("last_year", prev),
		zap.Int("current_year", current),
	)
}

func parseRow(rowNum int, fields []string) (parsedRow, []RowError) {
	var errs []RowError
	if len(fields) < minIngestColumns {
		return parsedRow{}, []RowError{{
			Row:     rowNum,
			Message: fmt.Sprintf("expected at least %d columns, got %d", minIngestColumns, len(fields)),
		}}
	}

	var row parsedRow

	cis := strings.TrimSpace(fields[0])
	if n, err := strconv.Atoi(cis); err != nil {
		errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid case number %q", cis)})
	} else {
		row.cis = n
	}

	// fields[1] is the incoming barcode column; ignored, barcodes are
	// assigned here.

	rt := strings.ToUpper(strings.TrimSpace(fields[2]))
	if !domain.ValidRecordType(rt) {
		errs = append(errs, RowError{rowNum, fmt.Sprintf("unknown record type %q", fields[2])})
	} else {
		row.recordType = rt
	}

	if box := strings.TrimSpace(fields[3]); box != "" {
		if n, err := strconv.ParseInt(box, 10, 64); err != nil {
			errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid box number %q", box)})
		} else {
			row.boxNumber = sql.NullInt64{Int64: n, Valid: true}
		}
	}

	if loc := strings.TrimSpace(fields[4]); loc != "" {
		row.location = sql.NullString{String: loc, Valid: true}
	}

	if b, err := parseBool(fields[5]); err != nil {
		errs = append(errs, RowError{rowNum, err.Error()})
	} else {
		row.digitized = b
	}

	if d, err := parseDate(fields[6]); err != nil {
		errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid closing date %q", strings.TrimSpace(fields[6]))})
	} else {
		row.closingDate = d
	}

	if d, err := parseDate(fields[7]); err != nil {
		errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid destroy date %q", strings.TrimSpace(fields[7]))})
	} else {
		row.destroyDate = d
	}

	return row, errs
}

// parseBool accepts TRUE/YES/1 and FALSE/NO/0 case-insensitively; empty means
// false; anything else is an error.
func parseBool(raw string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "YES", "1":
		return true, nil
	case "FALSE", "NO", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", strings.TrimSpace(raw))
	}
}

func parseDate(raw string) (sql.NullTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return sql.NullTime{Time: t.UTC(), Valid: true}, nil
		}
	}
	return sql.NullTime{}, fmt.Errorf("invalid date %q", raw)
}
