// Package labels paginates records into fixed-size physical label grids and
// renders them through a drawing collaborator.
package labels

import (
	"recordsmaster/internal/domain"
)

// Geometry describes one label grid. Lengths are in points (1/72 inch).
type Geometry struct {
	LabelWidth  float64
	LabelHeight float64
	Margin      float64

	LabelsPerRow    int
	LabelsPerColumn int
}

// PrinterGeometry is the direct-print layout: 4.0in x 1.33in labels with a
// 0.2in margin, 2 columns x 7 rows, 14 labels per Letter page.
var PrinterGeometry = Geometry{
	LabelWidth:      4.0 * 72,
	LabelHeight:     1.33 * 72,
	Margin:          0.2 * 72,
	LabelsPerRow:    2,
	LabelsPerColumn: 7,
}

// SheetGeometry is the on-screen label-sheet layout, 3 columns x 7 rows,
// 21 labels per page.
var SheetGeometry = Geometry{
	LabelWidth:      2.6 * 72,
	LabelHeight:     1.33 * 72,
	Margin:          0.2 * 72,
	LabelsPerRow:    3,
	LabelsPerColumn: 7,
}

// PerPage returns the grid capacity of one page.
func (g Geometry) PerPage() int {
	return g.LabelsPerRow * g.LabelsPerColumn
}

// Cell is one placed label. X and Y are the top-left corner on the page.
type Cell struct {
	Row, Col int
	X, Y     float64
	Record   *domain.RecordItem
}

// Page is one page of placed labels. Number is zero-based.
type Page struct {
	Number int
	Cells  []Cell
}

// Layout places records in input order onto consecutive pages. The record at
// flattened index p*perPage + r*labelsPerRow + c lands on page p at grid
// position (r, c). Layout is pure: the same input always yields the same
// pages, and nothing persists between calls.
func (g Geometry) Layout(records []*domain.RecordItem) []Page {
	pages := make([]Page, 0, g.PageCount(len(records)))
	for p := 0; p*g.PerPage() < len(records); p++ {
		page, _ := g.PageOf(records, p)
		pages = append(pages, page)
	}
	return pages
}

// PageOf lays out a single page by index, so a caller resuming a multi-page
// print job asks for an explicit page instead of relying on hidden state.
// ok is false when the page index is past the end of the input.
func (g Geometry) PageOf(records []*domain.RecordItem, page int) (Page, bool) {
	perPage := g.PerPage()
	start := page * perPage
	if page < 0 || start >= len(records) {
		return Page{Number: page}, false
	}
	end := start + perPage
	if end > len(records) {
		end = len(records)
	}

	out := Page{Number: page, Cells: make([]Cell, 0, end-start)}
	for i := start; i < end; i++ {
		offset := i - start
		row := offset / g.LabelsPerRow
		col := offset % g.LabelsPerRow
		out.Cells = append(out.Cells, Cell{
			Row:    row,
			Col:    col,
			X:      g.Margin + float64(col)*(g.LabelWidth+g.Margin),
			Y:      g.Margin + float64(row)*(g.LabelHeight+g.Margin),
			Record: records[i],
		})
	}
	return out, true
}

// PageCount returns the number of pages needed for n records.
func (g Geometry) PageCount(n int) int {
	perPage := g.PerPage()
	return (n + perPage - 1) / perPage
}
