package labels

import "fmt"

// Font selects a face and size for DrawText.
type Font struct {
	Name string
	Size float64
}

// Label text uses a small face for the case number and a large face for the
// barcode and record type.
var (
	FontSmall = Font{Name: "Helvetica", Size: 12}
	FontLarge = Font{Name: "Helvetica", Size: 24}
)

const textPadding = 5 // points inside the label border

// Renderer is the drawing collaborator. Coordinates are in points from the
// page's top-left corner; DrawText positions the text baseline.
type Renderer interface {
	StartPage()
	DrawRect(x, y, w, h float64)
	DrawText(x, y float64, font Font, text string)
}

// Render draws every page of the plan: a border per label plus three stacked
// lines of text (case number, barcode, record type).
func Render(r Renderer, pages []Page, g Geometry) {
	for _, page := range pages {
		r.StartPage()
		for _, cell := range page.Cells {
			r.DrawRect(cell.X, cell.Y, g.LabelWidth, g.LabelHeight)

			x := cell.X + textPadding
			y := cell.Y + textPadding + FontSmall.Size
			r.DrawText(x, y, FontSmall, fmt.Sprintf("Case#: %d", cell.Record.CIS))

			y += FontLarge.Size + 2
			r.DrawText(x, y, FontLarge, cell.Record.Barcode)

			y += FontLarge.Size + 2
			r.DrawText(x, y, FontLarge, cell.Record.RecordType)
		}
	}
}
