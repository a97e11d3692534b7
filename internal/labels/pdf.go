package labels

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer draws label pages into an in-memory Letter-size PDF.
type PDFRenderer struct {
	pdf *gofpdf.Fpdf
}

// NewPDFRenderer returns a renderer with margins and auto page breaks
// disabled; the layout engine owns all positioning.
func NewPDFRenderer() *PDFRenderer {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &PDFRenderer{pdf: pdf}
}

func (p *PDFRenderer) StartPage() {
	p.pdf.AddPage()
}

func (p *PDFRenderer) DrawRect(x, y, w, h float64) {
	p.pdf.Rect(x, y, w, h, "D")
}

func (p *PDFRenderer) DrawText(x, y float64, font Font, text string) {
	p.pdf.SetFont(font.Name, "", font.Size)
	p.pdf.Text(x, y, text)
}

// Bytes closes the document and returns it.
func (p *PDFRenderer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SafeName makes a barcode usable in a filename: filesystem-unsafe characters
// become underscores and an all-blank value becomes "UNKNOWN".
func SafeName(barcode string) string {
	s := strings.TrimSpace(barcode)
	if s == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
}

// FileName builds the download filename for a label run.
func FileName(firstBarcode, lastBarcode string) string {
	return SafeName(firstBarcode) + " - " + SafeName(lastBarcode) + ".pdf"
}
