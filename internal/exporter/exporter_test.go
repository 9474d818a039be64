package exporter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/render"
	"github.com/pavelanni/gradesheet/internal/report"
)

type fakeInsighter struct {
	text string
	err  error
	lang string
	got  report.Summary
}

func (f *fakeInsighter) Insights(_ context.Context, _ model.AssessmentMetadata, s report.Summary, lang string) (string, error) {
	f.got = s
	f.lang = lang
	return f.text, f.err
}

func ptr[T any](v T) *T { return &v }

func testInput() report.Input {
	return report.Input{
		Assessment: model.AssessmentMetadata{
			ID:            "a1",
			Title:         "Quiz",
			QuestionTypes: []model.QuestionTypeInfo{{Type: "essay"}},
		},
		Submissions: []model.SubmissionRecord{
			{StudentID: "s1", StudentName: ptr("Ann"), Status: model.StatusGraded, Score: ptr(45.0), PercentageScore: ptr(90.0)},
			{StudentID: "s2", StudentName: ptr("Bob"), Status: model.StatusNotAttempted},
		},
		Config: model.DefaultExportConfiguration(),
	}
}

func fixedClock() time.Time { return time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC) }

func sheetKinds(wb *model.Workbook) []model.SheetKind {
	var kinds []model.SheetKind
	for _, s := range wb.Sheets {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestWorkbookWithInsights(t *testing.T) {
	ins := &fakeInsighter{text: "Good attendance.\n\nOne absentee."}
	x := New(ins, report.WithClock(fixedClock))

	wb, err := x.Workbook(context.Background(), Request{Input: testInput(), Mode: model.ModeDefault, Lang: "ru", Insights: true})
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	kinds := sheetKinds(wb)
	if len(kinds) != 4 || kinds[2] != model.SheetAnalytics || kinds[3] != model.SheetInsights {
		t.Fatalf("sheets = %v", kinds)
	}
	if rows := wb.Sheets[3].Rows; len(rows) != 2 || rows[1].Cells[0] != "One absentee." {
		t.Errorf("insights rows = %+v", rows)
	}
	if ins.lang != "ru" || ins.got.Total != 2 || ins.got.Absent != 1 {
		t.Errorf("insighter saw lang=%q summary=%+v", ins.lang, ins.got)
	}
}

func TestWorkbookInsightsFailureIsNotFatal(t *testing.T) {
	x := New(&fakeInsighter{err: errors.New("endpoint down")}, report.WithClock(fixedClock))
	wb, err := x.Workbook(context.Background(), Request{Input: testInput(), Mode: model.ModeDefault, Insights: true})
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	if wb.Sheet(model.SheetInsights) != nil {
		t.Error("failed insights should not add a sheet")
	}
}

func TestWorkbookWithoutInsightsRequest(t *testing.T) {
	ins := &fakeInsighter{text: "unused"}
	wb, err := New(ins).Workbook(context.Background(), Request{Input: testInput(), Mode: model.ModeDefault})
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	if wb.Sheet(model.SheetInsights) != nil {
		t.Error("insights sheet added without being requested")
	}
}

func TestExportCSV(t *testing.T) {
	in := testInput()
	in.Config.Settings.Format = model.FormatCSV
	res, err := New(nil, report.WithClock(fixedClock)).Export(context.Background(), Request{Input: in, Mode: model.ModeDefault})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "Quiz_20240301T101530.csv" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if !strings.HasPrefix(res.ContentType, "text/csv") {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if !strings.HasPrefix(string(res.Body), "=== Performance ===\n") {
		t.Errorf("body starts with %q", string(res.Body[:min(40, len(res.Body))]))
	}
}

func TestExportErrors(t *testing.T) {
	pdf := testInput()
	pdf.Config.Settings.Format = model.FormatPDF
	if _, err := New(nil).Export(context.Background(), Request{Input: pdf, Mode: model.ModeDefault}); !errors.Is(err, render.ErrSerialization) {
		t.Errorf("pdf export error = %v, want ErrSerialization", err)
	}

	bad := testInput()
	bad.Config.Settings.Format = "docx"
	if _, err := New(nil).Export(context.Background(), Request{Input: bad, Mode: model.ModeDefault}); !errors.Is(err, report.ErrConfiguration) {
		t.Errorf("docx export error = %v, want ErrConfiguration", err)
	}
}
