package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/gradesheet/internal/exporter"
	appI18n "github.com/pavelanni/gradesheet/internal/i18n"
	"github.com/pavelanni/gradesheet/internal/metrics"
	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/render"
	"github.com/pavelanni/gradesheet/internal/report"
	"github.com/pavelanni/gradesheet/internal/store"
)

// Config holds request handling settings.
type Config struct {
	DefaultLang    string
	TokenTTL       time.Duration
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	exporter *exporter.Exporter
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, x *exporter.Exporter, cfg Config) *Handler {
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = store.DefaultTokenTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &Handler{store: s, exporter: x, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(RequestID)
	r.Use(countRequests)
	r.Use(appI18n.Middleware(h.config.DefaultLang))

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/tokens", h.handleCreateToken)
		r.Delete("/tokens", h.handleRevokeToken)
		r.Get("/assessments", h.handleListAssessments)
		r.Get("/assessments/{id}", h.handleGetAssessment)
		r.Get("/assessments/{id}/export", h.handleExportQuery)
		r.Post("/assessments/{id}/export", h.handleExportBody)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/assessments", h.handleUploadDataset)
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.AssessmentCount(); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListAssessments()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []model.AssessmentSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

type assessmentResponse struct {
	Assessment model.AssessmentMetadata `json:"assessment"`
	Summary    report.Summary           `json:"summary"`
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.LoadDataset(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessmentResponse{
		Assessment: ds.Assessment,
		Summary:    report.Aggregate(ds.Submissions),
	})
}

var settingsFlags = map[string]func(*model.ExportConfiguration) *bool{
	"includeCharts":    func(c *model.ExportConfiguration) *bool { return &c.Settings.IncludeCharts },
	"includeSummary":   func(c *model.ExportConfiguration) *bool { return &c.Settings.IncludeSummary },
	"colorCode":        func(c *model.ExportConfiguration) *bool { return &c.Settings.ColorCode },
	"includeTimestamp": func(c *model.ExportConfiguration) *bool { return &c.Settings.IncludeTimestamp },

	"presentStudents":     func(c *model.ExportConfiguration) *bool { return &c.Filters.PresentStudents },
	"absentStudents":      func(c *model.ExportConfiguration) *bool { return &c.Filters.AbsentStudents },
	"firstAttemptOnly":    func(c *model.ExportConfiguration) *bool { return &c.Filters.FirstAttemptOnly },
	"lateSubmissionsOnly": func(c *model.ExportConfiguration) *bool { return &c.Filters.LateSubmissionsOnly },
	"excludeDisqualified": func(c *model.ExportConfiguration) *bool { return &c.Filters.ExcludeDisqualified },
	"gradedOnly":          func(c *model.ExportConfiguration) *bool { return &c.Filters.GradedOnly },
	"includeAbsentees":    func(c *model.ExportConfiguration) *bool { return &c.Filters.IncludeAbsentees },
}

// configFromQuery reads an export configuration from URL parameters on top
// of the defaults.
func configFromQuery(q map[string][]string) (model.ExportConfiguration, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	cfg := model.DefaultExportConfiguration()
	if f := get("format"); f != "" {
		cfg.Settings.Format = model.Format(strings.ToLower(f))
	}
	cfg.Settings.CustomFilename = get("filename")
	for _, key := range splitList(get("columns")) {
		cfg.Columns = append(cfg.Columns, model.ColumnToggle{Key: key, Include: true})
	}
	if deps := splitList(get("departments")); len(deps) > 0 {
		cfg.Filters.ByDepartment, cfg.Filters.Departments = true, deps
	}
	if batches := splitList(get("batches")); len(batches) > 0 {
		cfg.Filters.ByBatch, cfg.Filters.Batches = true, batches
	}
	if ranges := splitList(get("ranges")); len(ranges) > 0 {
		cfg.Filters.ByPerformanceRange, cfg.Filters.PerformanceRanges = true, ranges
	}
	for name, field := range settingsFlags {
		raw := get(name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: %q is not a boolean", report.ErrConfiguration, name, raw)
		}
		*field(&cfg) = b
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) handleExportQuery(w http.ResponseWriter, r *http.Request) {
	cfg, err := configFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.export(w, r, cfg)
}

func (h *Handler) handleExportBody(w http.ResponseWriter, r *http.Request) {
	cfg := model.DefaultExportConfiguration()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: read body: %w", report.ErrConfiguration, err))
		return
	}
	if len(body) > 0 {
		if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
			err = yaml.Unmarshal(body, &cfg)
		} else {
			err = json.Unmarshal(body, &cfg)
		}
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: decode configuration: %w", report.ErrConfiguration, err))
			return
		}
	}
	h.export(w, r, cfg)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, cfg model.ExportConfiguration) {
	q := r.URL.Query()
	mode := model.ModeDefault
	if m := q.Get("mode"); m != "" {
		mode = model.ExportMode(strings.ToLower(m))
	}
	insights := false
	if raw := q.Get("insights"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: insights: %q is not a boolean", report.ErrConfiguration, raw))
			return
		}
		insights = b
	}

	in, err := h.store.LoadExportInput(chi.URLParam(r, "id"), cfg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.exporter.Export(r.Context(), exporter.Request{
		Input:    in,
		Mode:     mode,
		Lang:     requestLang(r, h.config.DefaultLang),
		Labeler:  appI18n.LabelerFromContext(r.Context()),
		Insights: insights,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.Info("export served", "assessment_id", in.Assessment.ID, "mode", mode,
		"filename", res.Filename, "bytes", len(res.Body), "request_id", RequestIDFromContext(r.Context()))
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	_, _ = w.Write(res.Body)
}

// requestLang returns the language used for generated prose: the "lang"
// parameter, then the first Accept-Language tag, then fallback.
func requestLang(r *http.Request, fallback string) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err == nil && len(tags) > 0 {
		return tags[0].String()
	}
	return fallback
}

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// fail maps err to a status code and writes a localized JSON error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reason := map[string]any{"Reason": err.Error()}
	var status int
	var msg string
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		if id := chi.URLParam(r, "id"); id != "" {
			msg = appI18n.Td(ctx, "ErrAssessmentNotFound", map[string]any{"ID": id})
		} else {
			msg = appI18n.T(ctx, "ErrNotFound")
		}
	case errors.Is(err, report.ErrConfiguration):
		status = http.StatusBadRequest
		msg = appI18n.Td(ctx, "ErrInvalidConfiguration", reason)
	case errors.Is(err, store.ErrInvalidDataset):
		status = http.StatusBadRequest
		msg = appI18n.Td(ctx, "ErrInvalidDataset", reason)
	case errors.Is(err, report.ErrDataShape):
		status = http.StatusUnprocessableEntity
		msg = appI18n.Td(ctx, "ErrDataShape", reason)
	case errors.Is(err, render.ErrSerialization):
		status = http.StatusServiceUnavailable
		msg = appI18n.T(ctx, "ErrExportUnavailable")
		w.Header().Set("Retry-After", "60")
	default:
		status = http.StatusInternalServerError
		msg = appI18n.T(ctx, "ErrInternal")
	}

	requestID := RequestIDFromContext(ctx)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "request_id", requestID, "error", err)
	} else {
		slog.Warn("request rejected", "path", r.URL.Path, "status", status, "request_id", requestID, "error", err)
	}
	resp := errorResponse{Error: msg, RequestID: requestID}
	if status < http.StatusInternalServerError {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
