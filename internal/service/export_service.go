package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// exportHeader is the column order shared by the CSV and Excel exports. The
// CSV form round-trips through UpdateService.
var exportHeader = []string{
	"ID", "CIS", "BarCode", "RecordType", "Location", "BoxNumber",
	"Digitized", "ClosingDate", "DestroyDate",
	"CheckedOut", "Requested", "ReadyForPickup", "CheckedOutToId",
}

const exportDateLayout = "2006-01-02"

// ExportService renders the record inventory as CSV or Excel.
type ExportService interface {
	ExportCSV(ctx context.Context, w io.Writer, filters repository.RecordFilters) (int, error)
	ExportExcel(ctx context.Context, filters repository.RecordFilters) ([]byte, error)
}

type exportService struct {
	records repository.RecordsRepository
	logger  *zap.Logger
}

func NewExportService(records repository.RecordsRepository, logger *zap.Logger) ExportService {
	return &exportService{records: records, logger: logger}
}

func (s *exportService) fetchAll(ctx context.Context, filters repository.RecordFilters) ([]*domain.RecordItem, error) {
	out := []*domain.RecordItem{}
	for page := 1; ; page++ {
		batch, total, err := s.records.ListRecords(ctx, filters, page, 1000)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(out) >= total || len(batch) == 0 {
			return out, nil
		}
	}
}

// ExportCSV streams every matching record; encoding/csv handles quoting of
// embedded commas, quotes and newlines. Returns the row count.
func (s *exportService) ExportCSV(ctx context.Context, w io.Writer, filters repository.RecordFilters) (int, error) {
	records, err := s.fetchAll(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	s.logger.Info("csv export generated", zap.Int("records", len(records)))
	return len(records), nil
}

// ExportExcel renders the same columns into a styled spreadsheet.
func (s *exportService) ExportExcel(ctx context.Context, filters repository.RecordFilters) ([]byte, error) {
	records, err := s.fetchAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Records"
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, r := range records {
		for col, value := range exportRow(r) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	s.logger.Info("excel export generated", zap.Int("records", len(records)))
	return buf.Bytes(), nil
}

func exportRow(r *domain.RecordItem) []string {
	return []string{
		r.ID,
		strconv.Itoa(r.CIS),
		r.Barcode,
		r.RecordType,
		nullString(r.Location),
		nullInt(r.BoxNumber),
		boolToken(r.Digitized),
		nullDate(r.ClosingDate),
		nullDate(r.DestroyDate),
		boolToken(r.CheckedOut),
		boolToken(r.Requested),
		boolToken(r.ReadyForPickup),
		nullString(r.CheckedOutTo),
	}
}

func nullString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func nullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func nullDate(v sql.NullTime) string {
	if !v.Valid {
		return ""
	}
	return v.Time.Format(exportDateLayout)
}

func boolToken(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
