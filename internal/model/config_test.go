package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestColumnSelectionJSONKeepsOrder(t *testing.T) {
	var cfg ExportConfiguration
	data := `{"columns": {"percentage": true, "studentName": true, "email": false, "batch": true}}`
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []string{"percentage", "studentName", "batch"}
	if got := cfg.Columns.Selected(); !reflect.DeepEqual(got, want) {
		t.Errorf("Selected() = %v, want %v", got, want)
	}

	out, err := json.Marshal(cfg.Columns)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"percentage":true,"studentName":true,"email":false,"batch":true}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestColumnSelectionJSONArray(t *testing.T) {
	var c ColumnSelection
	if err := json.Unmarshal([]byte(`["email", "score", "email"]`), &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := c.Selected(); !reflect.DeepEqual(got, []string{"email", "score"}) {
		t.Errorf("Selected() = %v", got)
	}
}

func TestColumnSelectionJSONInvalid(t *testing.T) {
	var c ColumnSelection
	if err := json.Unmarshal([]byte(`{"email": "yes"}`), &c); err == nil {
		t.Error("expected error for non-boolean flag")
	}
	if err := json.Unmarshal([]byte(`42`), &c); err == nil {
		t.Error("expected error for scalar")
	}
}

func TestColumnSelectionYAML(t *testing.T) {
	doc := `
columns:
  submittedAt: true
  rollNumber: true
  score: false
filters:
  byDepartment: true
  departments: [CSE, ECE]
settings:
  format: csv
  colorCode: true
`
	var cfg ExportConfiguration
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := cfg.Columns.Selected(); !reflect.DeepEqual(got, []string{"submittedAt", "rollNumber"}) {
		t.Errorf("Selected() = %v", got)
	}
	if !cfg.Filters.ByDepartment || len(cfg.Filters.Departments) != 2 {
		t.Errorf("Filters = %+v", cfg.Filters)
	}
	if cfg.Settings.Format != FormatCSV || !cfg.Settings.ColorCode {
		t.Errorf("Settings = %+v", cfg.Settings)
	}
}

func TestDefaultsSurvivePartialDocument(t *testing.T) {
	cfg := DefaultExportConfiguration()
	if err := json.Unmarshal([]byte(`{"settings": {"colorCode": false}, "filters": {"unknownFilter": true}}`), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Settings.ColorCode {
		t.Error("colorCode should be overridden")
	}
	if !cfg.Settings.IncludeSummary || cfg.Settings.Format != FormatXLSX {
		t.Errorf("defaults lost: %+v", cfg.Settings)
	}
}

func TestQuestionTypeInfoUnion(t *testing.T) {
	var a AssessmentMetadata
	data := `{"id": "a1", "question_types": ["essay", {"type": "coding", "marks": 40}]}`
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(a.QuestionTypes) != 2 {
		t.Fatalf("expected 2 types, got %d", len(a.QuestionTypes))
	}
	if a.QuestionTypes[0].Type != "essay" || a.QuestionTypes[0].Marks != nil {
		t.Errorf("first = %+v", a.QuestionTypes[0])
	}
	if a.QuestionTypes[1].Type != "coding" || a.QuestionTypes[1].Marks == nil || *a.QuestionTypes[1].Marks != 40 {
		t.Errorf("second = %+v", a.QuestionTypes[1])
	}
}

func TestSubmissionRecordDefaults(t *testing.T) {
	var r SubmissionRecord
	data := `{"student_id": "s1", "status": "graded", "percentage_score": 90, "department_name": "CSE"}`
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !r.Present() {
		t.Error("graded record should be present")
	}
	if r.Attempt() != 1 {
		t.Errorf("Attempt() = %d, want 1", r.Attempt())
	}
	if r.StudentName != nil {
		t.Error("missing name should stay nil")
	}
	if r.PercentageScore == nil || *r.PercentageScore != 90 {
		t.Errorf("PercentageScore = %v", r.PercentageScore)
	}
}
