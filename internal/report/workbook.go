package report

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

// TimestampLayout is the filename timestamp format.
const TimestampLayout = "20060102T150405"

// DefaultCreator is written into workbook document properties.
const DefaultCreator = "gradesheet"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeFilenamePart strips every character outside [A-Za-z0-9].
func SanitizeFilenamePart(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "")
}

// Filename builds the artifact name stem (no extension):
// "<title>_<college>_<timestamp>", or "<custom>_<timestamp>" when the
// settings carry a custom filename. Parts that sanitize to nothing are
// dropped; if nothing remains before the timestamp, "report" is used.
func Filename(a model.AssessmentMetadata, s model.Settings, now time.Time) string {
	var parts []string
	if custom := SanitizeFilenamePart(s.CustomFilename); custom != "" {
		parts = append(parts, custom)
	} else {
		for _, p := range []string{a.Title, a.CollegeName} {
			if clean := SanitizeFilenamePart(p); clean != "" {
				parts = append(parts, clean)
			}
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "report")
	}
	parts = append(parts, now.Format(TimestampLayout))
	return strings.Join(parts, "_")
}

var sheetOrder = map[model.ExportMode]map[model.SheetKind]int{
	model.ModeDefault: {
		model.SheetPerformance: 0,
		model.SheetAbsentees:   1,
		model.SheetAnalytics:   2,
		model.SheetInsights:    3,
	},
	model.ModeAdvanced: {
		model.SheetCustom:          0,
		model.SheetCustomAbsentees: 1,
		model.SheetAnalytics:       2,
		model.SheetInsights:        3,
	},
}

// Assemble orders sheets for the mode and wraps them with document
// metadata. Sheets of kinds the mode does not know go last, in the order given.
func Assemble(mode model.ExportMode, sheets []model.Sheet, meta model.Workbook) *model.Workbook {
	order := sheetOrder[mode]
	rank := func(k model.SheetKind) int {
		if r, ok := order[k]; ok {
			return r
		}
		return len(order)
	}
	ordered := append([]model.Sheet(nil), sheets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i].Kind) < rank(ordered[j].Kind)
	})
	wb := meta
	wb.Sheets = ordered
	return &wb
}

// AppendInsights returns a copy of wb with an insights sheet placed after
// the analytics sheet.
func AppendInsights(wb *model.Workbook, mode model.ExportMode, text string, l Labeler) *model.Workbook {
	sheets := append(append([]model.Sheet(nil), wb.Sheets...), InsightsSheet(text, l))
	meta := *wb
	meta.Sheets = nil
	return Assemble(mode, sheets, meta)
}
