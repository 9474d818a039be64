package report

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

type sheetBuilder struct {
	proj     projector
	ls       labels
	settings model.Settings
}

// sortByPercentage returns a copy of records ordered by percentage score,
// highest first. The sort is stable; records without a score go last.
func sortByPercentage(records []model.SubmissionRecord) []model.SubmissionRecord {
	out := append([]model.SubmissionRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PercentageScore, out[j].PercentageScore
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return out
}

func (b sheetBuilder) bandedRow(cells []any, r model.SubmissionRecord, present bool, pctCol int) model.Row {
	row := model.Row{Cells: cells, BandCol: model.WholeRow}
	if !present {
		row.Band = model.BandAbsent
		return row
	}
	if !b.settings.ColorCode || pctCol < 0 || r.PercentageScore == nil {
		return row
	}
	row.Band = BandFor(*r.PercentageScore, true)
	row.BandCol = pctCol
	return row
}

func (b sheetBuilder) performance(present []model.SubmissionRecord) model.Sheet {
	header := b.proj.header()
	pctCol := len(header) - 1
	sheet := model.Sheet{
		Name:         b.ls.get(LabelSheetPerformance),
		Kind:         model.SheetPerformance,
		Header:       header,
		HeaderStyled: true,
	}
	for _, r := range sortByPercentage(present) {
		sheet.Rows = append(sheet.Rows, b.bandedRow(b.proj.project(r, true), r, true, pctCol))
	}
	return sheet
}

// absentees uses the Performance header so the two sheets line up column for column.
func (b sheetBuilder) absentees(absent []model.SubmissionRecord) model.Sheet {
	sheet := model.Sheet{
		Name:         b.ls.get(LabelSheetAbsentees),
		Kind:         model.SheetAbsentees,
		Header:       b.proj.header(),
		HeaderStyled: true,
	}
	for _, r := range absent {
		sheet.Rows = append(sheet.Rows, model.Row{
			Cells:   b.proj.project(r, false),
			Band:    model.BandAbsent,
			BandCol: model.WholeRow,
		})
	}
	return sheet
}

func (b sheetBuilder) custom(records []model.SubmissionRecord, cols []CustomColumn) model.Sheet {
	present, absent := Partition(records)
	pctCol := percentageColumn(cols)
	sheet := model.Sheet{
		Name:         b.ls.get(LabelSheetCustom),
		Kind:         model.SheetCustom,
		Header:       b.proj.customHeader(cols),
		HeaderStyled: true,
	}
	for _, r := range sortByPercentage(present) {
		sheet.Rows = append(sheet.Rows, b.bandedRow(b.proj.projectCustom(r, true, cols), r, true, pctCol))
	}
	for _, r := range absent {
		sheet.Rows = append(sheet.Rows, b.bandedRow(b.proj.projectCustom(r, false, cols), r, false, pctCol))
	}
	return sheet
}

func (b sheetBuilder) customAbsentees(absent []model.SubmissionRecord, cols []CustomColumn) model.Sheet {
	sheet := model.Sheet{
		Name:         b.ls.get(LabelSheetCustomAbsentees),
		Kind:         model.SheetCustomAbsentees,
		Header:       b.proj.customHeader(cols),
		HeaderStyled: true,
	}
	for _, r := range absent {
		sheet.Rows = append(sheet.Rows, model.Row{
			Cells:   b.proj.projectCustom(r, false, cols),
			Band:    model.BandAbsent,
			BandCol: model.WholeRow,
		})
	}
	return sheet
}

// analytics lays out the summary sheet. The block order is fixed: identity
// and counts, distribution table, department table, batch table.
func (b sheetBuilder) analytics(a model.AssessmentMetadata, s Summary, generated time.Time) model.Sheet {
	get := b.ls.get
	sheet := model.Sheet{
		Name:         get(LabelSheetAnalytics),
		Kind:         model.SheetAnalytics,
		Header:       []string{get(LabelSumMetric), get(LabelSumValue)},
		HeaderStyled: true,
	}
	add := func(cells ...any) {
		sheet.Rows = append(sheet.Rows, model.Row{Cells: cells, BandCol: model.WholeRow})
	}
	section := func(cells ...any) {
		sheet.Rows = append(sheet.Rows, model.Row{Cells: cells, BandCol: model.WholeRow, Section: true})
	}

	add(get(LabelSumAssessment), textOrNA(a.Title))
	add(get(LabelSumAssessmentID), textOrNA(a.ID))
	add(get(LabelSumCollege), textOrNA(a.CollegeName))
	if b.settings.IncludeTimestamp {
		add(get(LabelSumGeneratedAt), generated.In(b.proj.loc).Format(DateTimeLayout))
	}
	add(get(LabelSumTotal), s.Total)
	add(get(LabelSumPresent), s.Present)
	add(get(LabelSumAbsent), s.Absent)
	add(get(LabelSumAttendanceRate), FormatRate(s.AttendanceRate))
	add(get(LabelSumAverageScore), round2(s.AverageScore))

	add()
	section(get(LabelSumDistribution), get(LabelSumStudents))
	first := len(sheet.Rows)
	for _, d := range s.Distribution {
		add(d.Bucket, d.Count)
	}
	if b.settings.IncludeCharts {
		sheet.Charts = append(sheet.Charts, model.Chart{
			Title:       get(LabelSumDistribution),
			SeriesName:  get(LabelSumStudents),
			FirstRow:    first,
			LastRow:     len(sheet.Rows) - 1,
			CategoryCol: 0,
			ValueCol:    1,
		})
	}

	b.groupTable(&sheet, get(LabelSumDepartment), s.Departments)
	b.groupTable(&sheet, get(LabelSumBatch), s.Batches)
	return sheet
}

func (b sheetBuilder) groupTable(sheet *model.Sheet, title string, groups []GroupStats) {
	get := b.ls.get
	sheet.Rows = append(sheet.Rows,
		model.Row{BandCol: model.WholeRow},
		model.Row{
			Cells:   []any{title, get(LabelSumGroupTotal), get(LabelSumPresent), get(LabelSumAbsent), get(LabelSumAverageScore)},
			BandCol: model.WholeRow,
			Section: true,
		},
	)
	for _, g := range groups {
		sheet.Rows = append(sheet.Rows, model.Row{
			Cells:   []any{g.Name, g.Total, g.Present, g.Absent, round2(g.AverageScore)},
			BandCol: model.WholeRow,
		})
	}
}

// InsightsSheet wraps free text (one row per non-empty line) as a sheet.
// Callers append it after the analytics sheet.
func InsightsSheet(text string, l Labeler) model.Sheet {
	ls := labels{l: l}
	sheet := model.Sheet{
		Name:         ls.get(LabelSheetInsights),
		Kind:         model.SheetInsights,
		Header:       []string{ls.get(LabelSheetInsights)},
		HeaderStyled: true,
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sheet.Rows = append(sheet.Rows, model.Row{Cells: []any{line}, BandCol: model.WholeRow})
	}
	return sheet
}

// FormatRate renders a rate with one decimal and a trailing "%".
func FormatRate(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + "%"
}

func textOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
