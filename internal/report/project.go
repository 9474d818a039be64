package report

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

// fieldCategory decides which sentinel and formatting rule a column follows.
type fieldCategory int

const (
	categoryIdentity fieldCategory = iota
	categoryPerformance
	categoryDate
	categoryBoolean
	categoryOther
)

// projector maps submission records onto ordered row values.
type projector struct {
	schema Schema
	loc    *time.Location
	ls     labels
}

func newProjector(schema Schema, loc *time.Location, ls labels) projector {
	if loc == nil {
		loc = time.UTC
	}
	return projector{schema: schema, loc: loc, ls: ls}
}

// baseHeader is the identity block shared by the Performance and Absentees sheets.
func (p projector) baseHeader() []string {
	return []string{
		p.ls.get(LabelColRollNumber),
		p.ls.get(LabelColName),
		p.ls.get(LabelColEmail),
		p.ls.get(LabelColDepartment),
		p.ls.get(LabelColBatch),
	}
}

// header is the full default-mode header: identity, one column per
// question type, Total and Percentage.
func (p projector) header() []string {
	h := p.baseHeader()
	suffix := p.ls.get(LabelColMarksSuffix)
	for _, c := range p.schema {
		h = append(h, c.Label+" "+suffix)
	}
	return append(h, p.ls.get(LabelColTotal), p.ls.get(LabelColPercentage))
}

// project builds a default-mode row. Per-type marks are an even split of
// the total score over the resolved types; the source data does not carry
// real per-type marks.
func (p projector) project(r model.SubmissionRecord, present bool) []any {
	row := []any{
		orNA(r.StudentIDNumber),
		orNA(r.StudentName),
		orNA(r.Email),
		orNA(r.DepartmentName),
		orNA(r.BatchName),
	}
	if !present {
		for range p.schema {
			row = append(row, AbsentValue)
		}
		return append(row, AbsentValue, AbsentValue)
	}

	if r.Score == nil {
		for range p.schema {
			row = append(row, NotAvailable)
		}
		row = append(row, NotAvailable)
	} else {
		split := int(math.Round(*r.Score / float64(len(p.schema))))
		for range p.schema {
			row = append(row, split)
		}
		row = append(row, round2(*r.Score))
	}

	if r.PercentageScore == nil {
		return append(row, NotAvailable)
	}
	return append(row, FormatPercent(*r.PercentageScore))
}

// CustomColumn is one entry of the fixed custom-export column table.
type CustomColumn struct {
	Key     string
	LabelID string
	cat     fieldCategory
	value   func(p projector, r model.SubmissionRecord) any
}

var customColumns = []CustomColumn{
	{"rollNumber", LabelColRollNumber, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.StudentIDNumber) }},
	{"studentName", LabelColStudentName, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.StudentName) }},
	{"email", LabelColEmail, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.Email) }},
	{"department", LabelColDepartment, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.DepartmentName) }},
	{"batch", LabelColBatch, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.BatchName) }},
	{"college", LabelColCollege, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return orNA(r.CollegeName) }},
	{"admissionType", LabelColAdmissionType, categoryIdentity, func(_ projector, r model.SubmissionRecord) any { return NormalizeAdmissionType(r.AdmissionType) }},
	{"status", LabelColStatus, categoryOther, func(_ projector, r model.SubmissionRecord) any { return HumanizeStatus(r.Status) }},
	{"attemptNumber", LabelColAttempt, categoryOther, func(_ projector, r model.SubmissionRecord) any { return r.Attempt() }},
	{"score", LabelColScore, categoryPerformance, func(_ projector, r model.SubmissionRecord) any {
		if r.Score == nil {
			return NotAvailable
		}
		return round2(*r.Score)
	}},
	{"percentage", LabelColPercentage, categoryPerformance, func(_ projector, r model.SubmissionRecord) any {
		if r.PercentageScore == nil {
			return NotAvailable
		}
		return FormatPercent(*r.PercentageScore)
	}},
	{"performanceLevel", LabelColPerformanceLevel, categoryPerformance, func(_ projector, r model.SubmissionRecord) any {
		if r.PercentageScore == nil {
			return NotAvailable
		}
		return PerformanceLevel(*r.PercentageScore)
	}},
	{"timeTaken", LabelColTimeTaken, categoryPerformance, func(_ projector, r model.SubmissionRecord) any {
		m, ok := timeTaken(r)
		if !ok {
			return NotAvailable
		}
		return FormatDuration(m)
	}},
	{"isLate", LabelColLate, categoryBoolean, func(_ projector, r model.SubmissionRecord) any { return FormatBool(r.IsLate) }},
	{"isDisqualified", LabelColDisqualified, categoryBoolean, func(_ projector, r model.SubmissionRecord) any { return FormatBool(r.IsDisqualified) }},
	{"startedAt", LabelColStartedAt, categoryDate, func(p projector, r model.SubmissionRecord) any { return formatTime(r.StartedAt, p.loc) }},
	{"submittedAt", LabelColSubmittedAt, categoryDate, func(p projector, r model.SubmissionRecord) any { return formatTime(r.SubmittedAt, p.loc) }},
	{"gradedAt", LabelColGradedAt, categoryDate, func(p projector, r model.SubmissionRecord) any { return formatTime(r.GradedAt, p.loc) }},
}

var customColumnIndex = func() map[string]int {
	m := make(map[string]int, len(customColumns))
	for i, c := range customColumns {
		m[c.Key] = i
	}
	return m
}()

// CustomColumnKeys lists the keys accepted in a column selection, sorted.
func CustomColumnKeys() []string {
	keys := make([]string, 0, len(customColumns))
	for _, c := range customColumns {
		keys = append(keys, c.Key)
	}
	sort.Strings(keys)
	return keys
}

// ResolveCustomColumns maps a selection onto the column table, keeping the
// selection's order. Unknown keys are skipped. An empty result is a
// configuration error.
func ResolveCustomColumns(sel model.ColumnSelection) ([]CustomColumn, error) {
	var cols []CustomColumn
	for _, key := range sel.Selected() {
		idx, ok := customColumnIndex[key]
		if !ok {
			slog.Debug("ignoring unknown column key", "key", key)
			continue
		}
		cols = append(cols, customColumns[idx])
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns selected for export", ErrConfiguration)
	}
	return cols, nil
}

func (p projector) customHeader(cols []CustomColumn) []string {
	h := make([]string, len(cols))
	for i, c := range cols {
		h[i] = p.ls.get(c.LabelID)
	}
	return h
}

// projectCustom builds a custom-mode row. Absent rows force performance
// fields to AbsentValue; every other category keeps its normal formatting.
func (p projector) projectCustom(r model.SubmissionRecord, present bool, cols []CustomColumn) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		if !present && c.cat == categoryPerformance {
			row[i] = AbsentValue
			continue
		}
		row[i] = c.value(p, r)
	}
	return row
}

// percentageColumn returns the index of the percentage column in a custom
// header, or -1.
func percentageColumn(cols []CustomColumn) int {
	for i, c := range cols {
		if c.Key == "percentage" {
			return i
		}
	}
	return -1
}
