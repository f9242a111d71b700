package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestLevelFromCount(t *testing.T) {
	if got := LevelFromCount(0); got != slog.LevelInfo {
		t.Errorf("Expected info for no -v, got %v", got)
	}
	if got := LevelFromCount(1); got != slog.LevelDebug {
		t.Errorf("Expected debug for -v, got %v", got)
	}
	if got := LevelFromCount(3); got != LevelTrace {
		t.Errorf("Expected trace for -vvv, got %v", got)
	}
}

func TestCompactHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	log.With("component", "web").WithGroup("graph").Info("agent added", "id", "planner", "name", "The Planner")
	log.Log(context.Background(), LevelTrace, "visiting")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	if !strings.HasPrefix(lines[0], "[INFO]  ") {
		t.Errorf("Expected INFO prefix, got %q", lines[0])
	}
	want := `agent added | component=web graph.id=planner graph.name="The Planner"`
	if !strings.HasSuffix(lines[0], want) {
		t.Errorf("Expected line to end with %q, got %q", want, lines[0])
	}
	if !strings.HasPrefix(lines[1], "[TRACE] ") {
		t.Errorf("Expected TRACE prefix, got %q", lines[1])
	}
}

func TestCompactHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warning in output, got %q", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, slog.LevelInfo, false)
	defer SetLevel(slog.LevelInfo)

	var seen string
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware)
	r.HandleFunc("/api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/agents/ghost", nil)
	req.Header.Set("X-Request-ID", "fixed-request-id")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen != "fixed-request-id" {
		t.Errorf("Expected request ID in context, got %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "fixed-request-id" {
		t.Errorf("Expected request ID header, got %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, "request rejected") || !strings.Contains(out, "path=/api/agents/{id}") {
		t.Errorf("Expected rejected request logged under route template, got %q", out)
	}
	if !strings.Contains(out, "req=fixed-re") {
		t.Errorf("Expected shortened request ID, got %q", out)
	}
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, slog.LevelInfo, true)
	defer SetLevel(slog.LevelInfo)

	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("Expected generated UUID, got %q", rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), `"msg":"request completed"`) {
		t.Errorf("Expected JSON log line, got %q", buf.String())
	}
}
