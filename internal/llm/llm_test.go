package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
)

func fakeEndpoint(t *testing.T, reply string, gotPrompt *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"test-model","object":"model"}]}`)
		case "/v1/chat/completions":
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Messages) > 0 && gotPrompt != nil {
				*gotPrompt = req.Messages[0].Content
			}
			w.Header().Set("Content-Type", "application/json")
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "test-model",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInsights(t *testing.T) {
	var prompt string
	srv := fakeEndpoint(t, "  Attendance was high.\nCSE did best.  ", &prompt)
	c := New(srv.URL+"/v1", "key", "test-model", "brief")

	summary := report.Summary{
		Total: 4, Present: 3, Absent: 1, AttendanceRate: 75, AverageScore: 81.5,
		Distribution: []report.BucketCount{{Bucket: ">90%", Count: 1}},
		Departments:  []report.GroupStats{{Name: "CSE", Total: 2, Present: 2, AverageScore: 90}},
	}
	got, err := c.Insights(context.Background(), model.AssessmentMetadata{ID: "a1", Title: "Midterm"}, summary, "ru")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if got != "Attendance was high.\nCSE did best." {
		t.Errorf("Insights() = %q", got)
	}
	for _, want := range []string{"Midterm", "Attendance rate: 75%", "CSE: 2 of 2 present", "Russian", "at most three"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestInsightsStripsMarkup(t *testing.T) {
	srv := fakeEndpoint(t, "<p><b>Strong</b> results & Bob's gains</p><script>x()</script>", nil)
	c := New(srv.URL+"/v1", "key", "test-model", "standard")
	got, err := c.Insights(context.Background(), model.AssessmentMetadata{}, report.Summary{}, "en")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if got != "Strong results & Bob's gains" {
		t.Errorf("Insights() = %q", got)
	}
}

func TestInsightsEmptyReply(t *testing.T) {
	srv := fakeEndpoint(t, "   ", nil)
	c := New(srv.URL+"/v1", "key", "test-model", "standard")
	if _, err := c.Insights(context.Background(), model.AssessmentMetadata{}, report.Summary{}, "en"); err == nil {
		t.Error("expected error for empty commentary")
	}
}

func TestPing(t *testing.T) {
	srv := fakeEndpoint(t, "", nil)
	if err := New(srv.URL+"/v1", "key", "test-model", "").Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if err := New(down.URL+"/v1", "key", "test-model", "").Ping(context.Background()); err == nil {
		t.Error("expected Ping error from failing endpoint")
	}
}

func TestNewFallsBackToStandard(t *testing.T) {
	c := New("", "key", "m", "verbose")
	if c.variant != "standard" {
		t.Errorf("variant = %q, want standard", c.variant)
	}
}
