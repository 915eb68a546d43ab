package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/scribe/internal/account"
	"github.com/starford/scribe/internal/api"
	"github.com/starford/scribe/internal/noteservice"
	"github.com/starford/scribe/internal/testutil"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func testHandler(t *testing.T, db pinger) http.Handler {
	t.Helper()
	store := testutil.TestStore(t)
	idp := testutil.TestIdentity(store)
	reg := prometheus.NewRegistry()
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	if db == nil {
		db = store
	}
	apiRouter := api.NewRouter(account.NewService(idp, store), noteservice.NewService(store), idp, nil)
	return newHTTPHandler(NewDefaultConfig().App.HTTP, apiRouter, metrics, reg, db)
}

func TestHealthEndpoints(t *testing.T) {
	h := testHandler(t, nil)
	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
			t.Errorf("%s = %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	h := testHandler(t, fakePinger{err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := testHandler(t, nil)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/notes", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `scribe_api_http_requests_total{method="GET",route="/api/notes",status="401"} 1`) {
		t.Errorf("metrics body missing request counter:\n%s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allowed origin = %q (status %d)", got, w.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
	if err := RunMCP(context.Background(), "token"); err == nil {
		t.Fatal("RunMCP without config should fail")
	}
}
