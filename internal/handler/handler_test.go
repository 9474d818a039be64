package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradesheet/internal/exporter"
	appI18n "github.com/pavelanni/gradesheet/internal/i18n"
	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
	"github.com/pavelanni/gradesheet/internal/store"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const testDataset = `{
  "assessment": {"id": "quiz-1", "title": "Quiz", "question_types": ["essay"]},
  "submissions": [
    {"student_id": "s1", "student_name": "Ann", "department_name": "CSE", "status": "graded", "score": 45, "percentage_score": 90},
    {"student_id": "s2", "student_name": "Bob", "department_name": "ECE", "status": "not_attempted"}
  ]
}`

type testServer struct {
	*httptest.Server
	store *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.AddUser("admin", "", "adminpw", model.UserRoleAdmin); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := s.AddUser("teacher", "", "teacherpw", model.UserRoleTeacher); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := s.ImportDataset("quiz.json", []byte(testDataset)); err != nil {
		t.Fatalf("ImportDataset: %v", err)
	}

	clock := func() time.Time { return time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC) }
	h := New(s, exporter.New(nil, report.WithClock(clock)), Config{DefaultLang: "en"})
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, user, pass string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", "", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		user string
		pass string
		want int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "teacher", "nope", http.StatusUnauthorized},
		{"teacher", "teacher", "teacherpw", http.StatusOK},
		{"admin", "admin", "adminpw", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/assessments", tt.user, tt.pass, nil, "")
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/api/tokens", "teacher", "teacherpw", nil, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/tokens status = %d", resp.StatusCode)
	}
	tok := decode[tokenResponse](t, resp)
	if len(tok.Token) != 64 || !tok.ExpiresAt.After(time.Now()) {
		t.Errorf("token = %+v", tok)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/assessments", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	got, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("bearer status = %d, want 200", got.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	revoked, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer revoked.Body.Close()
	if revoked.StatusCode != http.StatusNoContent {
		t.Errorf("revoke status = %d, want 204", revoked.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/assessments", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", bad.StatusCode)
	}
}

func TestListAndGetAssessment(t *testing.T) {
	ts := newTestServer(t)

	list := decode[[]model.AssessmentSummary](t, ts.do(t, http.MethodGet, "/api/assessments", "teacher", "teacherpw", nil, ""))
	if len(list) != 1 || list[0].ID != "quiz-1" || list[0].SubmissionCount != 2 {
		t.Errorf("list = %+v", list)
	}

	resp := ts.do(t, http.MethodGet, "/api/assessments/quiz-1", "teacher", "teacherpw", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[assessmentResponse](t, resp)
	if got.Assessment.Title != "Quiz" || got.Summary.Total != 2 || got.Summary.Present != 1 {
		t.Errorf("assessment = %+v", got)
	}
}

func TestNotFoundIsLocalized(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		lang string
		want string
	}{
		{"en", "Assessment missing not found."},
		{"ru", "Работа missing не найдена."},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/assessments/missing?lang="+tt.lang, "teacher", "teacherpw", nil, "")
			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", resp.StatusCode)
			}
			body := decode[errorResponse](t, resp)
			if body.Error != tt.want {
				t.Errorf("error = %q, want %q", body.Error, tt.want)
			}
			if body.RequestID == "" {
				t.Error("missing request_id")
			}
		})
	}
}

func TestExportQuery(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name        string
		query       string
		status      int
		contentType string
	}{
		{"xlsx default", "", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"csv", "?format=csv&colorCode=false", http.StatusOK, "text/csv; charset=utf-8"},
		{"advanced csv", "?format=csv&mode=advanced&columns=studentName,percentage", http.StatusOK, "text/csv; charset=utf-8"},
		{"bad boolean", "?includeCharts=maybe", http.StatusBadRequest, ""},
		{"bad insights flag", "?insights=sometimes", http.StatusBadRequest, ""},
		{"unknown format", "?format=docx", http.StatusBadRequest, ""},
		{"advanced without columns", "?mode=advanced", http.StatusBadRequest, ""},
		{"pdf", "?format=pdf", http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/assessments/quiz-1/export"+tt.query, "teacher", "teacherpw", nil, "")
			if resp.StatusCode != tt.status {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			if tt.contentType != "" {
				if got := resp.Header.Get("Content-Type"); got != tt.contentType {
					t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
				}
				if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=") {
					t.Errorf("Content-Disposition = %q", cd)
				}
			}
			if tt.status == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") == "" {
				t.Error("missing Retry-After header")
			}
		})
	}
}

func TestExportXLSXIsZip(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/assessments/quiz-1/export", "teacher", "teacherpw", nil, "")
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Errorf("xlsx body does not start with a zip signature: %q", body[:min(len(body), 8)])
	}
}

func TestExportBody(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name        string
		body        string
		contentType string
		status      int
	}{
		{"json", `{"settings": {"format": "csv"}, "filters": {"presentStudents": true}}`, "application/json", http.StatusOK},
		{"yaml", "settings:\n  format: csv\nfilters:\n  byDepartment: true\n  departments: [CSE]\n", "application/yaml", http.StatusOK},
		{"empty body uses defaults", "", "application/json", http.StatusOK},
		{"malformed", `{"settings":`, "application/json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/assessments/quiz-1/export", "teacher", "teacherpw",
				strings.NewReader(tt.body), tt.contentType)
			if resp.StatusCode != tt.status {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
		})
	}
}

func TestExportBodyAppliesFilters(t *testing.T) {
	ts := newTestServer(t)
	body := `{"settings": {"format": "csv", "includeSummary": false}, "filters": {"byDepartment": true, "departments": ["ECE"]}}`
	resp := ts.do(t, http.MethodPost, "/api/assessments/quiz-1/export", "teacher", "teacherpw",
		strings.NewReader(body), "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(out), "Ann") || !strings.Contains(string(out), "Bob") {
		t.Errorf("department filter not applied:\n%s", out)
	}
}

func uploadBody(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("dataset_file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadDataset(t *testing.T) {
	ts := newTestServer(t)
	dataset := `{"assessment": {"id": "quiz-2", "title": "Quiz 2"}, "submissions": [{"student_id": "s1", "status": "submitted"}]}`

	body, ct := uploadBody(t, "quiz2.json", dataset)
	if resp := ts.do(t, http.MethodPost, "/api/assessments", "teacher", "teacherpw", body, ct); resp.StatusCode != http.StatusForbidden {
		t.Errorf("teacher upload status = %d, want 403", resp.StatusCode)
	}

	body, ct = uploadBody(t, "quiz2.json", dataset)
	resp := ts.do(t, http.MethodPost, "/api/assessments", "admin", "adminpw", body, ct)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	got := decode[map[string]any](t, resp)
	if got["assessment_id"] != "quiz-2" || got["skipped"] != false {
		t.Errorf("upload = %v", got)
	}

	body, ct = uploadBody(t, "quiz2.json", dataset)
	if resp := ts.do(t, http.MethodPost, "/api/assessments", "admin", "adminpw", body, ct); resp.StatusCode != http.StatusOK {
		t.Errorf("repeat upload status = %d, want 200", resp.StatusCode)
	}

	body, ct = uploadBody(t, "bad.json", `{"assessment": {}}`)
	if resp := ts.do(t, http.MethodPost, "/api/assessments", "admin", "adminpw", body, ct); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid upload status = %d, want 400", resp.StatusCode)
	}

	body, ct = uploadBody(t, "image.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if resp := ts.do(t, http.MethodPost, "/api/assessments", "admin", "adminpw", body, ct); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("binary upload status = %d, want 400", resp.StatusCode)
	}
}

func TestUserAdmin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/users", "admin", "adminpw",
		strings.NewReader(`{"username": "carol", "password": "pw"}`), "application/json")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[userResponse](t, resp)
	if created.Username != "carol" || created.Role != model.UserRoleTeacher || !created.Active {
		t.Errorf("created = %+v", created)
	}

	resp = ts.do(t, http.MethodPost, "/api/users", "admin", "adminpw",
		strings.NewReader(`{"username": "carol", "password": "pw"}`), "application/json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate create status = %d, want 400", resp.StatusCode)
	}

	users := decode[[]userResponse](t, ts.do(t, http.MethodGet, "/api/users", "admin", "adminpw", nil, ""))
	if len(users) != 3 {
		t.Errorf("ListUsers returned %d users, want 3", len(users))
	}

	path := "/api/users/" + itoa(created.ID) + "/toggle"
	toggled := decode[userResponse](t, ts.do(t, http.MethodPost, path, "admin", "adminpw", nil, ""))
	if toggled.Active {
		t.Error("toggle did not deactivate user")
	}
	if resp := ts.do(t, http.MethodGet, "/api/assessments", "carol", "pw", nil, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("inactive user status = %d, want 401", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/users/999/toggle", "admin", "adminpw", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("toggle unknown status = %d, want 404", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodGet, "/api/users", "teacher", "teacherpw", nil, ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("teacher list users status = %d, want 403", resp.StatusCode)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestConfigFromQuery(t *testing.T) {
	cfg, err := configFromQuery(map[string][]string{
		"format":      {"CSV"},
		"columns":     {"name, percentage,,"},
		"departments": {"CSE,ECE"},
		"ranges":      {">90%"},
		"colorCode":   {"false"},
		"gradedOnly":  {"1"},
	})
	if err != nil {
		t.Fatalf("configFromQuery: %v", err)
	}
	if cfg.Settings.Format != model.FormatCSV || cfg.Settings.ColorCode || !cfg.Settings.IncludeSummary {
		t.Errorf("settings = %+v", cfg.Settings)
	}
	if got := cfg.Columns.Selected(); len(got) != 2 || got[0] != "name" || got[1] != "percentage" {
		t.Errorf("columns = %v", got)
	}
	if !cfg.Filters.ByDepartment || len(cfg.Filters.Departments) != 2 || !cfg.Filters.GradedOnly {
		t.Errorf("filters = %+v", cfg.Filters)
	}
	if !cfg.Filters.ByPerformanceRange || cfg.Filters.PerformanceRanges[0] != ">90%" {
		t.Errorf("ranges = %v", cfg.Filters.PerformanceRanges)
	}
}

func TestRequestLang(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		accept string
		want   string
	}{
		{"query wins", "?lang=ru", "en-US", "ru"},
		{"accept language", "", "ru-RU,ru;q=0.9", "ru-RU"},
		{"fallback", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}
			if got := requestLang(r, "en"); got != tt.want {
				t.Errorf("requestLang() = %q, want %q", got, tt.want)
			}
		})
	}
}
