package report

import (
	"math"
	"strings"
)

// Bucket is a named percentage-score range. A score belongs to the first
// bucket (in PerformanceBuckets order) whose lower bound it clears; only
// the top bucket's bound is strict.
type Bucket struct {
	Name   string
	Min    float64
	Strict bool
}

// PerformanceBuckets is the single bucket table shared by the
// byPerformanceRange filter and the analytics distribution. A score of
// exactly 90 lands in "80–90%".
var PerformanceBuckets = []Bucket{
	{Name: ">90%", Min: 90, Strict: true},
	{Name: "80–90%", Min: 80},
	{Name: "70–80%", Min: 70},
	{Name: "60–70%", Min: 60},
	{Name: "50–60%", Min: 50},
	{Name: "<50%", Min: math.Inf(-1)},
}

func (b Bucket) admits(pct float64) bool {
	if b.Strict {
		return pct > b.Min
	}
	return pct >= b.Min
}

// BucketIndex returns the index into PerformanceBuckets for a percentage score.
func BucketIndex(pct float64) int {
	for i, b := range PerformanceBuckets {
		if b.admits(pct) {
			return i
		}
	}
	return len(PerformanceBuckets) - 1
}

// LookupBucket finds a bucket by name. ASCII hyphens are accepted in place
// of the en dash and surrounding spaces are ignored.
func LookupBucket(name string) (int, bool) {
	n := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	n = strings.ReplaceAll(n, "-", "–")
	for i, b := range PerformanceBuckets {
		if b.Name == n {
			return i, true
		}
	}
	return 0, false
}
