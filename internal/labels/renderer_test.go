package labels

import (
	"strings"
	"testing"
)

// recorder captures draw calls for assertions.
type recorder struct {
	pages int
	rects int
	texts []string
}

func (r *recorder) StartPage()                        { r.pages++ }
func (r *recorder) DrawRect(x, y, w, h float64)       { r.rects++ }
func (r *recorder) DrawText(x, y float64, f Font, s string) { r.texts = append(r.texts, s) }

func TestRender_DrawsBorderAndThreeLinesPerLabel(t *testing.T) {
	records := makeRecords(15)
	pages := PrinterGeometry.Layout(records)

	rec := &recorder{}
	Render(rec, pages, PrinterGeometry)

	if rec.pages != 2 {
		t.Errorf("started %d pages, want 2", rec.pages)
	}
	if rec.rects != 15 {
		t.Errorf("drew %d borders, want 15", rec.rects)
	}
	if len(rec.texts) != 45 {
		t.Fatalf("drew %d text lines, want 45", len(rec.texts))
	}
	// First label: case number line, then barcode, then record type.
	if !strings.HasPrefix(rec.texts[0], "Case#: ") {
		t.Errorf("first line = %q, want case number line", rec.texts[0])
	}
	if rec.texts[1] != "25-00001" {
		t.Errorf("second line = %q, want barcode", rec.texts[1])
	}
	if rec.texts[2] != "PS" {
		t.Errorf("third line = %q, want record type", rec.texts[2])
	}
}

func TestPDFRenderer_ProducesDocument(t *testing.T) {
	records := makeRecords(3)
	r := NewPDFRenderer()
	Render(r, PrinterGeometry.Layout(records), PrinterGeometry)

	out, err := r.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(out) == 0 || !strings.HasPrefix(string(out[:5]), "%PDF-") {
		t.Error("output is not a PDF document")
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"25-00042":    "25-00042",
		"":            "UNKNOWN",
		"   ":         "UNKNOWN",
		`25/00:0*42?`: "25_00_0_42_",
		" 25-00042 ":  "25-00042",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("25-00001", "25-00014"); got != "25-00001 - 25-00014.pdf" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName("", "25-00014"); got != "UNKNOWN - 25-00014.pdf" {
		t.Errorf("FileName with blank first = %q", got)
	}
}
