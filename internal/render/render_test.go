package render

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/gradesheet/internal/model"
)

var created = time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

func testWorkbook() *model.Workbook {
	return &model.Workbook{
		Filename: "Quiz_20240301T101530",
		Title:    "Quiz",
		Creator:  "gradesheet",
		Created:  created,
		Modified: created,
		Sheets: []model.Sheet{
			{
				Name:         "Performance",
				Kind:         model.SheetPerformance,
				Header:       []string{"Name", "Total", "Percentage"},
				HeaderStyled: true,
				Rows: []model.Row{
					{Cells: []any{"Ann", 92.5, "92.5%"}, Band: model.BandGood, BandCol: 2},
					{Cells: []any{"Bob, Jr.", 41, "41%"}, Band: model.BandAtRisk, BandCol: 2},
				},
			},
			{
				Name:   "Analytics Summary",
				Kind:   model.SheetAnalytics,
				Header: []string{"Metric", "Value"},
				Rows: []model.Row{
					{Cells: []any{"Total Students", 2}},
					{},
					{Cells: []any{"Performance Distribution", "Students"}, Section: true},
					{Cells: []any{">90%", 1}},
					{Cells: []any{"<50%", 1}},
				},
				Charts: []model.Chart{{Title: "Performance Distribution", SeriesName: "Students", FirstRow: 3, LastRow: 4, CategoryCol: 0, ValueCol: 1}},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(context.Background(), &buf, testWorkbook(), model.FormatCSV); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	want := strings.Join([]string{
		"=== Performance ===",
		"Name,Total,Percentage",
		"Ann,92.5,92.5%",
		`"Bob, Jr.",41,41%`,
		"",
		"=== Analytics Summary ===",
		"Metric,Value",
		"Total Students,2",
		"",
		"Performance Distribution,Students",
		">90%,1",
		"<50%,1",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("csv output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	err := Write(context.Background(), &bytes.Buffer{}, testWorkbook(), model.FormatPDF)
	if !errors.Is(err, ErrSerialization) {
		t.Errorf("Write(pdf) error = %v, want ErrSerialization", err)
	}
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, format := range []model.Format{model.FormatXLSX, model.FormatCSV} {
		if err := Write(ctx, &bytes.Buffer{}, testWorkbook(), format); !errors.Is(err, context.Canceled) {
			t.Errorf("Write(%s) error = %v, want context.Canceled", format, err)
		}
	}
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(context.Background(), &buf, testWorkbook()); err != nil {
		t.Fatalf("WriteXLSX() error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got, want := f.GetSheetList(), []string{"Performance", "Analytics Summary"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	rows, err := f.GetRows("Performance")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{
		{"Name", "Total", "Percentage"},
		{"Ann", "92.5", "92.5%"},
		{"Bob, Jr.", "41", "41%"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Performance rows = %v, want %v", rows, want)
	}

	v, err := f.GetCellValue("Analytics Summary", "A5")
	if err != nil || v != ">90%" {
		t.Errorf("A5 = %q, %v", v, err)
	}

	styled, _ := f.GetCellStyle("Performance", "C2")
	plain, _ := f.GetCellStyle("Performance", "A2")
	if styled == 0 || styled == plain {
		t.Errorf("band style not applied: C2=%d A2=%d", styled, plain)
	}

	props, err := f.GetDocProps()
	if err != nil {
		t.Fatalf("GetDocProps: %v", err)
	}
	if props.Creator != "gradesheet" || props.Title != "Quiz" {
		t.Errorf("doc props = %+v", props)
	}
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)
	tests := []struct {
		in, want string
	}{
		{"Performance", "Performance"},
		{"performance", "performance (2)"},
		{"a/b:c", "a_b_c"},
		{"  ", "Sheet"},
		{long, strings.Repeat("x", 31)},
		{long, strings.Repeat("x", 27) + " (2)"},
	}
	for _, tt := range tests {
		if got := uniqueSheetName(tt.in, used); got != tt.want {
			t.Errorf("uniqueSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileNameAndContentType(t *testing.T) {
	wb := testWorkbook()
	if got := FileName(wb, ""); got != "Quiz_20240301T101530.xlsx" {
		t.Errorf("FileName() = %q", got)
	}
	if got := FileName(wb, model.FormatCSV); got != "Quiz_20240301T101530.csv" {
		t.Errorf("FileName(csv) = %q", got)
	}
	if got := ContentType(model.FormatCSV); !strings.HasPrefix(got, "text/csv") {
		t.Errorf("ContentType(csv) = %q", got)
	}
}
