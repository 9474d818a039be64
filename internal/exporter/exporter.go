// Package exporter runs one export end to end: engine, optional insights
// and serialization.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/gradesheet/internal/metrics"
	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/render"
	"github.com/pavelanni/gradesheet/internal/report"
)

// Insighter writes commentary for an assessment's summary.
type Insighter interface {
	Insights(ctx context.Context, a model.AssessmentMetadata, s report.Summary, lang string) (string, error)
}

// Request is one export job.
type Request struct {
	Input    report.Input
	Mode     model.ExportMode
	Lang     string
	Labeler  report.Labeler
	Insights bool
}

// Result is a serialized workbook ready to be written out.
type Result struct {
	Workbook    *model.Workbook
	Filename    string
	ContentType string
	Body        []byte
}

// Exporter builds and serializes workbooks.
type Exporter struct {
	insights Insighter
	timeout  time.Duration
	opts     []report.Option
}

// New creates an Exporter. insights may be nil; engine options apply to
// every export.
func New(insights Insighter, opts ...report.Option) *Exporter {
	return &Exporter{insights: insights, timeout: 60 * time.Second, opts: opts}
}

// WithInsightsTimeout bounds each insights call.
func (x *Exporter) WithInsightsTimeout(d time.Duration) *Exporter {
	x.timeout = d
	return x
}

// Workbook builds the workbook for req, appending an insights sheet when
// requested and available. Insights failures never fail the export.
func (x *Exporter) Workbook(ctx context.Context, req Request) (*model.Workbook, error) {
	opts := append(append([]report.Option(nil), x.opts...), report.WithLabeler(req.Labeler))
	wb, err := report.New(opts...).Build(req.Input, req.Mode)
	if err != nil {
		return nil, err
	}
	if !req.Insights || x.insights == nil {
		return wb, nil
	}

	summary := report.Summarize(req.Input.Submissions, req.Input.Config.Filters)
	ictx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	text, err := x.insights.Insights(ictx, req.Input.Assessment, summary, req.Lang)
	if err != nil {
		metrics.Insights().WithLabelValues("error").Inc()
		slog.Warn("insights unavailable, exporting without them",
			"assessment_id", req.Input.Assessment.ID, "error", err)
		return wb, nil
	}
	metrics.Insights().WithLabelValues("ok").Inc()
	return report.AppendInsights(wb, req.Mode, text, req.Labeler), nil
}

// Export builds the workbook and serializes it in the configured format.
func (x *Exporter) Export(ctx context.Context, req Request) (res *Result, err error) {
	format := req.Input.Config.Settings.Format
	if format == "" {
		format = model.FormatXLSX
	}
	start := time.Now()
	defer func() {
		mode, fmtLabel := label(string(req.Mode), "default", "advanced"), label(string(format), "xlsx", "csv", "pdf")
		metrics.Exports().WithLabelValues(mode, fmtLabel, outcome(err)).Inc()
		if err == nil {
			metrics.ExportDuration().WithLabelValues(mode, fmtLabel).Observe(time.Since(start).Seconds())
			metrics.ExportedSubmissions().WithLabelValues(mode).Observe(float64(len(req.Input.Submissions)))
		}
	}()

	wb, err := x.Workbook(ctx, req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render.Write(ctx, &buf, wb, format); err != nil {
		return nil, err
	}
	return &Result{
		Workbook:    wb,
		Filename:    render.FileName(wb, format),
		ContentType: render.ContentType(format),
		Body:        buf.Bytes(),
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, report.ErrConfiguration):
		return "configuration"
	case errors.Is(err, report.ErrDataShape):
		return "data_shape"
	case errors.Is(err, render.ErrSerialization):
		return "serialization"
	default:
		return "error"
	}
}

// label keeps metric label values to a known set.
func label(v string, known ...string) string {
	for _, k := range known {
		if v == k {
			return v
		}
	}
	return "other"
}
