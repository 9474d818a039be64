// Package report turns assessment submissions, assessment metadata and an
// export configuration into a multi-sheet Workbook. Every stage is a pure
// function of its inputs; the only ambient input is the injected clock.
package report

import (
	"log/slog"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

// Input bundles everything one export needs.
type Input struct {
	Assessment  model.AssessmentMetadata
	Submissions []model.SubmissionRecord
	Config      model.ExportConfiguration
}

// Engine builds workbooks. The zero value is not usable; call New.
type Engine struct {
	now        func() time.Time
	loc        *time.Location
	labeler    Labeler
	creator    string
	strategies []SchemaStrategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the clock used for filenames and document timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone timestamp cells are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithLabeler localizes sheet names, headers and summary captions.
func WithLabeler(l Labeler) Option {
	return func(e *Engine) { e.labeler = l }
}

// WithCreator sets the workbook's creator property.
func WithCreator(name string) Option {
	return func(e *Engine) { e.creator = name }
}

// WithSchemaStrategies replaces the question-type resolution chain.
func WithSchemaStrategies(s ...SchemaStrategy) Option {
	return func(e *Engine) { e.strategies = s }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:        time.Now,
		loc:        time.UTC,
		creator:    DefaultCreator,
		strategies: DefaultSchemaStrategies,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export builds the default workbook: Performance, Absentees, Analytics Summary.
func (e *Engine) Export(in Input) (*model.Workbook, error) {
	return e.Build(in, model.ModeDefault)
}

// ExportAdvanced builds the custom-column workbook: Custom,
// Custom Absentees (when requested), Analytics Summary.
func (e *Engine) ExportAdvanced(in Input) (*model.Workbook, error) {
	return e.Build(in, model.ModeAdvanced)
}

// Build runs the pipeline for the given mode. Configuration problems are
// reported before any sheet is built.
func (e *Engine) Build(in Input, mode model.ExportMode) (*model.Workbook, error) {
	cfg := in.Config
	if err := ValidateConfiguration(cfg, mode); err != nil {
		return nil, err
	}

	ls := labels{l: e.labeler}
	schema, err := resolveSchema(in.Assessment, ls, e.strategies)
	if err != nil {
		return nil, err
	}

	filtered := Filter(in.Submissions, cfg.Filters)
	present, absent := Partition(filtered)
	summary := Aggregate(filtered)

	now := e.now()
	b := sheetBuilder{
		proj:     newProjector(schema, e.loc, ls),
		ls:       ls,
		settings: cfg.Settings,
	}

	var sheets []model.Sheet
	switch mode {
	case model.ModeAdvanced:
		cols, err := ResolveCustomColumns(cfg.Columns)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, b.custom(filtered, cols))
		if cfg.Filters.IncludeAbsentees || cfg.Filters.AbsentStudents {
			sheets = append(sheets, b.customAbsentees(absent, cols))
		}
	default:
		sheets = append(sheets, b.performance(present), b.absentees(absent))
	}
	if cfg.Settings.IncludeSummary {
		sheets = append(sheets, b.analytics(in.Assessment, summary, now))
	}

	wb := Assemble(mode, sheets, model.Workbook{
		Filename: Filename(in.Assessment, cfg.Settings, now),
		Title:    in.Assessment.Title,
		Creator:  e.creator,
		Created:  now,
		Modified: now,
	})

	slog.Info("built workbook",
		"assessment_id", in.Assessment.ID,
		"mode", mode,
		"submissions", len(in.Submissions),
		"exported", len(filtered),
		"present", summary.Present,
		"absent", summary.Absent,
		"question_types", len(schema),
		"sheets", len(wb.Sheets),
	)
	return wb, nil
}

// Summarize filters records with f and aggregates the result, the same
// numbers the analytics sheet shows.
func Summarize(records []model.SubmissionRecord, f model.FilterSet) Summary {
	return Aggregate(Filter(records, f))
}
