package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/labels"
	"recordsmaster/internal/repository"

	"go.uber.org/zap"
)

// LabelMode selects the physical grid the labels are laid out on.
type LabelMode string

const (
	// LabelModePrinter is the 2x7 grid fed straight to the label printer.
	LabelModePrinter LabelMode = "printer"
	// LabelModeSheet is the 3x7 Avery-style sheet for office printers.
	LabelModeSheet LabelMode = "sheet"
)

func (m LabelMode) geometry() labels.Geometry {
	if m == LabelModeSheet {
		return labels.SheetGeometry
	}
	return labels.PrinterGeometry
}

// LabelRun is one rendered label document.
type LabelRun struct {
	FileName string
	PDF      []byte
	Count    int
}

// LabelService turns record ranges (or a freshly ingested batch) into label
// PDFs, either downloaded or sent to the configured printer.
type LabelService interface {
	RenderRange(ctx context.Context, lower, upper string, mode LabelMode) (*LabelRun, error)
	RenderRecords(records []*domain.RecordItem, mode LabelMode) (*LabelRun, error)
	PrintRange(ctx context.Context, lower, upper string) error
}

type labelService struct {
	records repository.RecordsRepository
	printer string // lp destination; empty disables direct printing
	logger  *zap.Logger
}

func NewLabelService(records repository.RecordsRepository, printer string, logger *zap.Logger) LabelService {
	return &labelService{records: records, printer: printer, logger: logger}
}

// RenderRange fetches the inclusive barcode range and renders it. Bounds are
// normalized: barcodes are fixed width, so lexicographic order is sequence
// order and swapped bounds just mean the user typed them backwards.
func (s *labelService) RenderRange(ctx context.Context, lower, upper string, mode LabelMode) (*LabelRun, error) {
	if lower > upper {
		lower, upper = upper, lower
	}
	records, err := s.records.FindByBarcodeRange(ctx, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("find records in range: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("barcode range %s..%s: %w", lower, upper, domain.ErrNotFound)
	}
	return s.RenderRecords(records, mode)
}

// RenderRecords renders labels for the given records in input order.
func (s *labelService) RenderRecords(records []*domain.RecordItem, mode LabelMode) (*LabelRun, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to label: %w", domain.ErrNotFound)
	}

	g := mode.geometry()
	pages := g.Layout(records)
	renderer := labels.NewPDFRenderer()
	labels.Render(renderer, pages, g)
	pdf, err := renderer.Bytes()
	if err != nil {
		return nil, fmt.Errorf("render label pdf: %w", err)
	}

	run := &LabelRun{
		FileName: labels.FileName(records[0].Barcode, records[len(records)-1].Barcode),
		PDF:      pdf,
		Count:    len(records),
	}
	s.logger.Info("labels rendered",
		zap.String("file", run.FileName),
		zap.Int("records", run.Count),
		zap.Int("pages", len(pages)),
	)
	return run, nil
}

// PrintRange renders the range on the printer grid and hands the PDF to lp.
func (s *labelService) PrintRange(ctx context.Context, lower, upper string) error {
	if s.printer == "" {
		return fmt.Errorf("no label printer configured")
	}
	run, err := s.RenderRange(ctx, lower, upper, LabelModePrinter)
	if err != nil {
		return err
	}

	tmp := filepath.Join(os.TempDir(), run.FileName)
	if err := os.WriteFile(tmp, run.PDF, 0o600); err != nil {
		return fmt.Errorf("stage label pdf: %w", err)
	}
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, "lp", "-d", s.printer, tmp)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("lp -d %s: %w: %s", s.printer, err, stderr.String())
	}

	s.logger.Info("labels sent to printer",
		zap.String("printer", s.printer),
		zap.String("file", run.FileName),
		zap.Int("records", run.Count),
	)
	return nil
}
