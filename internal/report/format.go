package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

// Missing-value sentinels. Identity fields use NotAvailable; performance
// fields on rows of students who did not complete use AbsentValue.
const (
	NotAvailable = "N/A"
	AbsentValue  = "Absent"
)

// DateTimeLayout is the layout for timestamp cells.
const DateTimeLayout = "2006-01-02 15:04"

// Performance thresholds on the percentage score. The level labels and the
// color bands both derive from these.
const (
	thresholdExcellent    = 90
	thresholdGood         = 80
	thresholdAverage      = 70
	thresholdBelowAverage = 60
)

// PerformanceLevel returns the textual level for a percentage score.
func PerformanceLevel(pct float64) string {
	switch {
	case pct >= thresholdExcellent:
		return "Excellent"
	case pct >= thresholdGood:
		return "Good"
	case pct >= thresholdAverage:
		return "Average"
	case pct >= thresholdBelowAverage:
		return "Below Average"
	default:
		return "Needs Improvement"
	}
}

// BandFor returns the presentation band for a row.
func BandFor(pct float64, present bool) model.Band {
	switch {
	case !present:
		return model.BandAbsent
	case pct >= thresholdGood:
		return model.BandGood
	case pct >= thresholdBelowAverage:
		return model.BandBorderline
	default:
		return model.BandAtRisk
	}
}

// FormatPercent renders a percentage with at most two decimals and a trailing "%".
func FormatPercent(v float64) string {
	return formatDecimal(v) + "%"
}

// FormatDuration renders minutes as "<n> min".
func FormatDuration(minutes float64) string {
	return fmt.Sprintf("%d min", int(math.Round(minutes)))
}

// FormatBool renders Yes or No.
func FormatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// NormalizeAdmissionType maps the free-form admission type to Regular or Lateral.
func NormalizeAdmissionType(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return NotAvailable
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	if strings.Contains(s, "lateral") || s == "le" {
		return "Lateral"
	}
	return "Regular"
}

// HumanizeStatus turns "not_attempted" into "Not Attempted".
func HumanizeStatus(s model.SubmissionStatus) string {
	if s == "" {
		return NotAvailable
	}
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return NotAvailable
	}
	return t.In(loc).Format(DateTimeLayout)
}

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return NotAvailable
	}
	return *s
}

// timeTaken prefers the recorded duration and otherwise derives it from
// the start and submit timestamps.
func timeTaken(r model.SubmissionRecord) (float64, bool) {
	if r.TimeTaken != nil {
		return *r.TimeTaken, true
	}
	if r.StartedAt != nil && r.SubmittedAt != nil && r.SubmittedAt.After(*r.StartedAt) {
		return r.SubmittedAt.Sub(*r.StartedAt).Minutes(), true
	}
	return 0, false
}
