package report

import (
	"log/slog"

	"github.com/pavelanni/gradesheet/internal/model"
)

type predicate func(model.SubmissionRecord) bool

// Filter returns the records matching every enabled predicate of f, in
// input order. A FilterSet with nothing enabled returns all records. The
// input slice is never modified; the result is always a new slice.
func Filter(records []model.SubmissionRecord, f model.FilterSet) []model.SubmissionRecord {
	preds := predicates(f)
	out := make([]model.SubmissionRecord, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll(r model.SubmissionRecord, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

// predicates compiles the enabled filters. Parametric filters without
// parameters compile to nothing.
func predicates(f model.FilterSet) []predicate {
	var preds []predicate
	if f.PresentStudents {
		preds = append(preds, func(r model.SubmissionRecord) bool { return r.Present() })
	}
	if f.AbsentStudents {
		preds = append(preds, func(r model.SubmissionRecord) bool { return !r.Present() })
	}
	if f.ByDepartment && len(f.Departments) > 0 {
		allow := stringSet(f.Departments)
		preds = append(preds, func(r model.SubmissionRecord) bool {
			return r.DepartmentName != nil && allow[*r.DepartmentName]
		})
	}
	if f.ByBatch && len(f.Batches) > 0 {
		allow := stringSet(f.Batches)
		preds = append(preds, func(r model.SubmissionRecord) bool {
			return r.BatchName != nil && allow[*r.BatchName]
		})
	}
	if f.ByPerformanceRange {
		if p := rangePredicate(f.PerformanceRanges); p != nil {
			preds = append(preds, p)
		}
	}
	if f.FirstAttemptOnly {
		preds = append(preds, func(r model.SubmissionRecord) bool { return r.Attempt() == 1 })
	}
	if f.LateSubmissionsOnly {
		preds = append(preds, func(r model.SubmissionRecord) bool { return r.IsLate })
	}
	if f.ExcludeDisqualified {
		preds = append(preds, func(r model.SubmissionRecord) bool { return !r.IsDisqualified })
	}
	if f.GradedOnly {
		preds = append(preds, func(r model.SubmissionRecord) bool { return r.Status == model.StatusGraded })
	}
	return preds
}

func rangePredicate(names []string) predicate {
	selected := make(map[int]bool, len(names))
	for _, n := range names {
		idx, ok := LookupBucket(n)
		if !ok {
			slog.Debug("ignoring unknown performance range", "range", n)
			continue
		}
		selected[idx] = true
	}
	if len(selected) == 0 {
		return nil
	}
	return func(r model.SubmissionRecord) bool {
		if r.PercentageScore == nil {
			return false
		}
		return selected[BucketIndex(*r.PercentageScore)]
	}
}

func stringSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Partition splits records into present and absent, preserving order.
func Partition(records []model.SubmissionRecord) (present, absent []model.SubmissionRecord) {
	for _, r := range records {
		if r.Present() {
			present = append(present, r)
		} else {
			absent = append(absent, r)
		}
	}
	return present, absent
}
