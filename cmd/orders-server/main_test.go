package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/orders/internal/config"
	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/internal/platform/middleware"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Env:                   "development",
		StoreBackend:          config.BackendRemote,
		ServiceBaseURL:        baseURL,
		ServiceTimeout:        time.Second,
		DefaultTenant:         "default",
		GroupIdentifierSystem: "urn:ehr:prescription-group",
		GroupDiscoveryLimit:   1000,
		DispenseListLimit:     1000,
		BodyLimit:             "1M",
		CORSOrigins:           []string{"*"},
	}
}

func newTestServer(t *testing.T, backend http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["backend"] != config.BackendRemote || body["version"] != version {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestServer_Metrics(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_request_total") {
		t.Error("expected request counter in exposition")
	}
}

func TestServer_NoDBHealthForRemoteBackend(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_StockThroughRemoteBackend(t *testing.T) {
	var gotPath string
	backend := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"kind":"item","ref_id":7,"quantity":12.5,"unit":"box"}}`))
	})
	cfg := testConfig(backend.URL)
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stock/item/7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotPath != "/stock/item/7" {
		t.Errorf("unexpected backend path %q", gotPath)
	}
	var lvl struct {
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	}
	json.Unmarshal(rec.Body.Bytes(), &lvl)
	if lvl.Quantity != 12.5 || lvl.Unit != "box" {
		t.Errorf("unexpected stock level %s", rec.Body.String())
	}
}

func TestServer_BackendFailureIsBadGateway(t *testing.T) {
	backend := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"inventory ledger locked"}`))
	})
	cfg := testConfig(backend.URL)
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stock/item/7", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "inventory ledger locked") {
		t.Errorf("expected verbatim message, got %s", rec.Body.String())
	}
}

func TestServer_RoleEnforced(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/item/7", nil)
	req.Header.Set("X-Dev-Roles", "receptionist")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestServer_RateLimited(t *testing.T) {
	backend := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":{"kind":"item","ref_id":7,"quantity":1}}`))
	})
	cfg := testConfig(backend.URL)
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	e := newServer(cfg, zerolog.Nop(), remoteStores(cfg, zerolog.Nop()), nil, limiter)

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stock/item/7", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected 200 then 429, got %v", codes)
	}
}

func TestRateLimitConfig(t *testing.T) {
	cfg := &config.Config{RateLimitRPS: 5, RateLimitBurst: 10}
	if rl := rateLimitConfig(cfg); rl.RequestsPerSecond != 5 || rl.BurstSize != 10 {
		t.Errorf("unexpected config %+v", rl)
	}

	def := middleware.DefaultRateLimitConfig()
	for _, cfg := range []*config.Config{
		{RateLimitRPS: 0, RateLimitBurst: 10},
		{RateLimitRPS: 5, RateLimitBurst: 0},
	} {
		if rl := rateLimitConfig(cfg); rl != def {
			t.Errorf("expected default for %+v, got %+v", cfg, rl)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	printStatus(cmd, "tenant_default", []db.MigrationStatus{
		{Version: 1, Name: "001_prescription.sql", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "002_next.sql"},
	})

	got := out.String()
	for _, want := range []string{
		"Migration status for schema: tenant_default",
		"2026-01-02 03:04:05",
		"applied",
		"pending",
		"002_next.sql",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
