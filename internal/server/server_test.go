package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Options{Store: s, Builtin: true, Logger: discardLogger()})
	if err := a.LoadGestures(); err != nil {
		t.Fatalf("LoadGestures() error = %v", err)
	}
	return a
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Logger: discardLogger()})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["enabled"]; exists {
			t.Error("'enabled' should only be reported with an app")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthWithApp(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a, Logger: discardLogger()})
	defer s.Close()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var response struct {
		Enabled  bool `json:"enabled"`
		Gestures int  `json:"gestures"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Enabled || response.Gestures != len(a.Engine().Gestures()) {
		t.Errorf("health = %+v", response)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/gestures", "/api/events", "/api/engine"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status %d without store or app, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, index},
		{"/nonexistent.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.wantCode, rec.Code)
		}
		if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
			t.Errorf("GET %s: body = %q", tt.path, rec.Body.String())
		}
	}
}

func TestServer_EngineToggle(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a, Logger: discardLogger()})
	defer s.Close()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/engine", strings.NewReader(`{"enabled":false}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/engine status = %d: %s", rec.Code, rec.Body.String())
	}
	if a.Enabled() {
		t.Error("engine should be disabled")
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/engine", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT without enabled: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/engine", nil))
	if strings.TrimSpace(rec.Body.String()) != `{"enabled":false}` {
		t.Errorf("GET /api/engine = %s", rec.Body.String())
	}
}

func TestServer_Sources(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a, Logger: discardLogger()})
	defer s.Close()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/sources status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"configured":[],"running":[]}` {
		t.Errorf("GET /api/sources = %s", got)
	}
}

func TestNew_UsesAppStore(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a})
	defer s.Close()

	if s.config.Store != a.Store() {
		t.Error("server should fall back to the app's store")
	}
	var _ http.Handler = s
}
