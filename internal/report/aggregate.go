package report

import (
	"sort"
	"strings"

	"github.com/pavelanni/gradesheet/internal/model"
)

// BucketCount is one row of the performance distribution.
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// GroupStats is a per-department or per-batch rollup.
type GroupStats struct {
	Name         string  `json:"name"`
	Total        int     `json:"total"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	AverageScore float64 `json:"average_score"`
}

// Summary holds the aggregate statistics of a record set.
type Summary struct {
	Total          int           `json:"total"`
	Present        int           `json:"present"`
	Absent         int           `json:"absent"`
	AttendanceRate float64       `json:"attendance_rate"` // percent, 0 to 100
	AverageScore   float64       `json:"average_score"`   // mean percentage of present students
	Distribution   []BucketCount `json:"distribution"`
	Departments    []GroupStats  `json:"departments"`
	Batches        []GroupStats  `json:"batches"`
}

// Aggregate computes the summary of records. It is a pure function of the
// set: the result does not depend on record order, and empty input yields
// zeros rather than NaN.
func Aggregate(records []model.SubmissionRecord) Summary {
	s := Summary{Total: len(records)}

	dist := make([]int, len(PerformanceBuckets))
	var sum float64
	var scored int
	for _, r := range records {
		if !r.Present() {
			s.Absent++
			continue
		}
		s.Present++
		if r.PercentageScore != nil {
			sum += *r.PercentageScore
			scored++
			dist[BucketIndex(*r.PercentageScore)]++
		}
	}
	if s.Total > 0 {
		s.AttendanceRate = float64(s.Present) / float64(s.Total) * 100
	}
	if scored > 0 {
		s.AverageScore = sum / float64(scored)
	}

	s.Distribution = make([]BucketCount, len(PerformanceBuckets))
	for i, b := range PerformanceBuckets {
		s.Distribution[i] = BucketCount{Bucket: b.Name, Count: dist[i]}
	}

	s.Departments = rollup(records, func(r model.SubmissionRecord) *string { return r.DepartmentName })
	s.Batches = rollup(records, func(r model.SubmissionRecord) *string { return r.BatchName })
	return s
}

type groupAcc struct {
	stats  GroupStats
	sum    float64
	scored int
}

func rollup(records []model.SubmissionRecord, key func(model.SubmissionRecord) *string) []GroupStats {
	groups := make(map[string]*groupAcc)
	for _, r := range records {
		name := orNA(key(r))
		name = strings.TrimSpace(name)
		g, ok := groups[name]
		if !ok {
			g = &groupAcc{stats: GroupStats{Name: name}}
			groups[name] = g
		}
		g.stats.Total++
		if !r.Present() {
			g.stats.Absent++
			continue
		}
		g.stats.Present++
		if r.PercentageScore != nil {
			g.sum += *r.PercentageScore
			g.scored++
		}
	}

	out := make([]GroupStats, 0, len(groups))
	for _, g := range groups {
		if g.scored > 0 {
			g.stats.AverageScore = g.sum / float64(g.scored)
		}
		out = append(out, g.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
