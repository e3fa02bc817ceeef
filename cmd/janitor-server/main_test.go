package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/config"
	"github.com/dhos/janitor/internal/platform/db"
	"github.com/dhos/janitor/internal/platform/jobs"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                      "5000",
		Env:                       "development",
		LogLevel:                  "debug",
		HSKey:                     "test-secret-key-for-unit-tests-only",
		ProxyURL:                  "http://localhost",
		ServiceURLs:               map[string]string{},
		SystemJWTLifetimeSeconds:  86400,
		ClinicianJWTLifetimeSec:   3600,
		PatientJWTLifetimeSeconds: 3600,
		JWTTTLCoefficient:         0.75,
		TaskStore:                 config.TaskStoreMemory,
		RateLimitRPS:              100,
		RateLimitBurst:            100,
	}
}

func testApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp() error: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func do(e *echo.Echo, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func systemBearer(t *testing.T, a *app) string {
	t.Helper()
	tok, err := a.tokens.SystemJWT("dhos-robot")
	if err != nil {
		t.Fatalf("SystemJWT() error: %v", err)
	}
	return "Bearer " + tok
}

func TestProbeRoutes(t *testing.T) {
	e := newServer(testApp(t, testConfig()))

	if rec := do(e, http.MethodGet, "/running", ""); rec.Code != http.StatusOK {
		t.Errorf("/running: expected 200, got %d", rec.Code)
	}

	rec := do(e, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/version: expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode /version: %v", err)
	}
	if body["version"] != version {
		t.Errorf("expected version %q, got %q", version, body["version"])
	}

	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/db", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/health/db without postgres: expected 404, got %d", rec.Code)
	}
}

func TestSystemJWTRouteIsPublic(t *testing.T) {
	a := testApp(t, testConfig())
	e := newServer(a)

	rec := do(e, http.MethodGet, "/dhos/v1/system/dhos-robot/jwt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	claims, err := a.jwtConfig.Parse(body["jwt"])
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.SystemID() != "dhos-robot" {
		t.Errorf("expected system id dhos-robot, got %q", claims.SystemID())
	}
}

func TestTaskRoutesRequireSystemToken(t *testing.T) {
	a := testApp(t, testConfig())
	e := newServer(a)

	clinician, err := a.tokens.ClinicianJWT("stan.lee@mail.com", "")
	if err != nil {
		t.Fatalf("ClinicianJWT() error: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		authz  string
		want   int
	}{
		{"reset without token", http.MethodPost, "/dhos/v1/reset_task", "", http.StatusUnauthorized},
		{"populate without token", http.MethodPost, "/dhos/v1/populate_gdm_task", "", http.StatusUnauthorized},
		{"status without token", http.MethodGet, "/dhos/v1/task/abc", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/dhos/v1/task/abc", "Bearer nope", http.StatusUnauthorized},
		{"clinician token", http.MethodGet, "/dhos/v1/task/abc", "Bearer " + clinician, http.StatusForbidden},
		{"system token unknown task", http.MethodGet, "/dhos/v1/task/abc", systemBearer(t, a), http.StatusNotFound},
		{"drop disabled", http.MethodPost, "/dhos/v1/reset_task", systemBearer(t, a), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.authz)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTaskStatusReportsStoredTask(t *testing.T) {
	a := testApp(t, testConfig())
	e := newServer(a)

	ctx := context.Background()
	task := &jobs.Task{ID: "t-1", Name: "reset", Status: jobs.StatusRunning, StartedAt: time.Now().UTC()}
	if err := a.store.Admit(ctx, task); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	rec := do(e, http.MethodGet, "/dhos/v1/task/t-1", systemBearer(t, a))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != jobs.TaskLocation("t-1") {
		t.Errorf("unexpected Location %q", loc)
	}
}

func TestAuthDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AuthDisabled = true
	e := newServer(testApp(t, cfg))

	rec := do(e, http.MethodGet, "/dhos/v1/task/abc", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with auth disabled, got %d", rec.Code)
	}
}

func TestNewApp_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.TaskStore = config.TaskStoreRedis
	cfg.RedisURL = "redis://" + mr.Addr()

	a := testApp(t, cfg)
	if _, ok := a.store.(*jobs.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", a.store)
	}
	if a.rdb == nil {
		t.Error("expected the redis client to be kept for Close")
	}
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.TaskStore = config.TaskStoreRedis
	cfg.RedisURL = "redis://127.0.0.1:1"

	if _, err := newApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unreachable redis")
	}
}

type classified struct{ class string }

func (e classified) Error() string          { return "boom" }
func (e classified) Classification() string { return e.class }

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"http error", echo.NewHTTPError(http.StatusConflict, "busy"), http.StatusConflict, "busy"},
		{"validation", classified{jobs.ClassValidation}, http.StatusBadRequest, "boom"},
		{"service unavailable", classified{jobs.ClassServiceUnavailable}, http.StatusServiceUnavailable, "boom"},
		{"internal", errors.New("secret detail"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			httpErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["message"] != tt.msg {
				t.Errorf("expected message %q, got %v", tt.msg, body["message"])
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn, got %v", got)
	}
	cfg.LogLevel = "bogus"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printMigrationStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "001_janitor_task.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_next.sql"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[2], "applied") || !strings.Contains(lines[2], "2024-03-01 12:00:00") {
		t.Errorf("unexpected applied row: %q", lines[2])
	}
	if !strings.Contains(lines[3], "pending") {
		t.Errorf("unexpected pending row: %q", lines[3])
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, json.RawMessage(`{"users":{"ok":true}}`)); err != nil {
		t.Fatalf("printJSON() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"users\"") {
		t.Errorf("expected indented output, got %q", buf.String())
	}
}
