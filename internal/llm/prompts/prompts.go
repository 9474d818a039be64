package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
)

//go:embed templates/*.txt
var templateFS embed.FS

var dataTagRegex = regexp.MustCompile(`(?i)</?\s*assessment-data\b[^>]*>`)

const maxFieldRunes = 200

// PromptVariant selects how much commentary the insights prompt asks for.
type PromptVariant string

const (
	// PromptBrief asks for a two or three sentence summary.
	PromptBrief PromptVariant = "brief"
	// PromptStandard is the default variant.
	PromptStandard PromptVariant = "standard"
	// PromptDetailed asks for a full review with group comparisons.
	PromptDetailed PromptVariant = "detailed"
)

var variants = []PromptVariant{PromptBrief, PromptStandard, PromptDetailed}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	for _, known := range variants {
		if PromptVariant(v) == known {
			return true
		}
	}
	return false
}

// GroupLine is one department or batch row of the prompt.
type GroupLine struct {
	Name         string
	Total        int
	Present      int
	AverageScore string
}

// InsightData holds template data for insights prompts.
type InsightData struct {
	Title          string
	College        string
	Total          int
	Present        int
	Absent         int
	AttendanceRate string
	AverageScore   string
	Distribution   []report.BucketCount
	Departments    []GroupLine
	Batches        []GroupLine
	Language       string
}

func load() error {
	loadOnce.Do(func() {
		templates = make(map[PromptVariant]*template.Template, len(variants))
		for _, v := range variants {
			tmpl, err := template.New(string(v)).ParseFS(templateFS, "templates/data.txt", "templates/"+string(v)+".txt")
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", v, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// NewInsightData flattens an assessment summary into prompt data. Free-text
// fields are sanitized because they come from imported files.
func NewInsightData(a model.AssessmentMetadata, s report.Summary, lang string) InsightData {
	d := InsightData{
		Title:          sanitizeField(a.Title),
		College:        sanitizeField(a.CollegeName),
		Total:          s.Total,
		Present:        s.Present,
		Absent:         s.Absent,
		AttendanceRate: report.FormatRate(s.AttendanceRate),
		AverageScore:   report.FormatPercent(s.AverageScore),
		Distribution:   s.Distribution,
		Departments:    groupLines(s.Departments),
		Batches:        groupLines(s.Batches),
		Language:       LanguageName(lang),
	}
	if d.Title == "" {
		d.Title = report.NotAvailable
	}
	return d
}

func groupLines(groups []report.GroupStats) []GroupLine {
	out := make([]GroupLine, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupLine{
			Name:         sanitizeField(g.Name),
			Total:        g.Total,
			Present:      g.Present,
			AverageScore: report.FormatPercent(g.AverageScore),
		})
	}
	return out
}

// BuildInsightsPrompt renders the system prompt for the given variant.
func BuildInsightsPrompt(variant PromptVariant, data InsightData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, string(variant)+".txt", data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// LanguageName returns the English name of a language tag, "English" when
// the tag cannot be parsed.
func LanguageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		return "English"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return "English"
}

func sanitizeField(s string) string {
	s = dataTagRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes]) + "…"
	}
	return s
}
