package model

import "time"

// SheetKind identifies which builder produced a sheet.
type SheetKind string

const (
	SheetPerformance     SheetKind = "performance"
	SheetAbsentees       SheetKind = "absentees"
	SheetAnalytics       SheetKind = "analytics"
	SheetCustom          SheetKind = "custom"
	SheetCustomAbsentees SheetKind = "custom_absentees"
	SheetInsights        SheetKind = "insights"
)

// Band is a presentation band attached to a row or cell.
type Band string

const (
	BandNone       Band = ""
	BandGood       Band = "good"
	BandBorderline Band = "borderline"
	BandAtRisk     Band = "at_risk"
	BandAbsent     Band = "absent"
)

// WholeRow is the BandCol value that shades every cell of a row.
const WholeRow = -1

// Row is one ordered list of primitive cell values (string, int or float64).
type Row struct {
	Cells   []any
	Band    Band
	BandCol int  // column index the band applies to, or WholeRow
	Section bool // section heading inside a free-form sheet
}

// Chart describes a chart over a block of a sheet's rows. Row and column
// indexes are zero-based and relative to Rows (the header is not counted).
type Chart struct {
	Title       string
	SeriesName  string
	FirstRow    int
	LastRow     int
	CategoryCol int
	ValueCol    int
}

// Sheet is one named table of the workbook.
type Sheet struct {
	Name         string
	Kind         SheetKind
	Header       []string
	Rows         []Row
	HeaderStyled bool
	Charts       []Chart
}

// Workbook is the engine's output artifact.
type Workbook struct {
	Filename string // stem, without extension
	Title    string
	Creator  string
	Created  time.Time
	Modified time.Time
	Sheets   []Sheet
}

// Sheet returns the sheet of the given kind, or nil.
func (w *Workbook) Sheet(kind SheetKind) *Sheet {
	for i := range w.Sheets {
		if w.Sheets[i].Kind == kind {
			return &w.Sheets[i]
		}
	}
	return nil
}
