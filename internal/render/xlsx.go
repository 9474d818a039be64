package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/gradesheet/internal/model"
)

const (
	maxSheetNameLen = 31
	minColWidth     = 10.0
	maxColWidth     = 50.0
)

var bandColors = map[model.Band]string{
	model.BandGood:       "C6EFCE",
	model.BandBorderline: "FFEB9C",
	model.BandAtRisk:     "FFC7CE",
	model.BandAbsent:     "D9D9D9",
}

// styles caches the style IDs registered on one file.
type styles struct {
	header  int
	section int
	bands   map[model.Band]int
}

func newStyles(f *excelize.File) (*styles, error) {
	s := &styles{bands: make(map[model.Band]int, len(bandColors))}
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	s.section, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for band, color := range bandColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return nil, err
		}
		s.bands[band] = id
	}
	return s, nil
}

// cellStyle returns the style for column col of row, or 0.
func (s *styles) cellStyle(row model.Row, col int) int {
	if row.Section {
		return s.section
	}
	if row.Band == model.BandNone {
		return 0
	}
	if row.BandCol == model.WholeRow || row.BandCol == col {
		return s.bands[row.Band]
	}
	return 0
}

// WriteXLSX writes the workbook as a native multi-sheet spreadsheet.
// Tabular sheets are streamed row by row; sheets with charts are written
// through the cell API so the chart can reference them.
func WriteXLSX(ctx context.Context, w io.Writer, wb *model.Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        wb.Creator,
		LastModifiedBy: wb.Creator,
		Title:          wb.Title,
		Created:        wb.Created.UTC().Format(time.RFC3339),
		Modified:       wb.Modified.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("%w: xlsx: doc props: %w", ErrSerialization, err)
	}

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("%w: xlsx: styles: %w", ErrSerialization, err)
	}

	used := make(map[string]bool)
	for i, sheet := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := uniqueSheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("%w: xlsx: sheet %q: %w", ErrSerialization, name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("%w: xlsx: sheet %q: %w", ErrSerialization, name, err)
		}

		if len(sheet.Charts) > 0 {
			err = writeCells(f, name, sheet, st)
		} else {
			err = streamSheet(f, name, sheet, st)
		}
		if err != nil {
			return fmt.Errorf("%w: xlsx: sheet %q: %w", ErrSerialization, name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%w: xlsx: %w", ErrSerialization, err)
	}
	return nil
}

func streamSheet(f *excelize.File, name string, sheet model.Sheet, st *styles) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}
	for i, width := range columnWidths(sheet) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}

	rowNum := 1
	if len(sheet.Header) > 0 {
		headerStyle := 0
		if sheet.HeaderStyled {
			headerStyle = st.header
		}
		cells := make([]any, len(sheet.Header))
		for i, h := range sheet.Header {
			cells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
		}
		if err := sw.SetRow("A1", cells); err != nil {
			return err
		}
		rowNum++
	}

	for _, row := range sheet.Rows {
		cells := make([]any, len(row.Cells))
		for i, v := range row.Cells {
			cells[i] = excelize.Cell{StyleID: st.cellStyle(row, i), Value: v}
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
		rowNum++
	}
	return sw.Flush()
}

func writeCells(f *excelize.File, name string, sheet model.Sheet, st *styles) error {
	for i, width := range columnWidths(sheet) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}

	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if sheet.HeaderStyled && len(header) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(name, "A1", end, st.header); err != nil {
			return err
		}
	}

	for r, row := range sheet.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		values := append([]any(nil), row.Cells...)
		if err := f.SetSheetRow(name, start, &values); err != nil {
			return err
		}
		for c := range row.Cells {
			if style := st.cellStyle(row, c); style != 0 {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellStyle(name, cell, cell, style); err != nil {
					return err
				}
			}
		}
	}

	for i, ch := range sheet.Charts {
		if err := addChart(f, name, sheet, ch, i); err != nil {
			return err
		}
	}
	return nil
}

func addChart(f *excelize.File, name string, sheet model.Sheet, ch model.Chart, index int) error {
	ref := func(col, row int) string {
		c, _ := excelize.ColumnNumberToName(col + 1)
		return fmt.Sprintf("$%s$%d", c, row+2)
	}
	quoted := "'" + strings.ReplaceAll(name, "'", "''") + "'"
	anchorCol, _ := excelize.ColumnNumberToName(maxWidth(sheet) + 2)
	anchor := fmt.Sprintf("%s%d", anchorCol, 2+index*18)

	return f.AddChart(name, anchor, &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       ch.SeriesName,
			Categories: fmt.Sprintf("%s!%s:%s", quoted, ref(ch.CategoryCol, ch.FirstRow), ref(ch.CategoryCol, ch.LastRow)),
			Values:     fmt.Sprintf("%s!%s:%s", quoted, ref(ch.ValueCol, ch.FirstRow), ref(ch.ValueCol, ch.LastRow)),
		}},
		Title:  []excelize.RichTextRun{{Text: ch.Title}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

// columnWidths approximates a width per column from the longest cell text.
func columnWidths(sheet model.Sheet) []float64 {
	widths := make([]float64, maxWidth(sheet))
	for i := range widths {
		widths[i] = minColWidth
	}
	measure := func(col int, text string) {
		w := float64(utf8.RuneCountInString(text)) + 2
		if w > maxColWidth {
			w = maxColWidth
		}
		if w > widths[col] {
			widths[col] = w
		}
	}
	for i, h := range sheet.Header {
		measure(i, h)
	}
	for _, row := range sheet.Rows {
		for i, v := range row.Cells {
			measure(i, cellText(v))
		}
	}
	return widths
}

func maxWidth(sheet model.Sheet) int {
	n := len(sheet.Header)
	for _, row := range sheet.Rows {
		if len(row.Cells) > n {
			n = len(row.Cells)
		}
	}
	return n
}

// uniqueSheetName makes name valid for a spreadsheet tab: no []:*?/\
// characters, at most 31 runes, and not already used.
func uniqueSheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Sheet"
	}
	clean = truncateRunes(clean, maxSheetNameLen)

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetNameLen-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
