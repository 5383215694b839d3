package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/dispensary-crm/pkg/config"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "test" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReadyReportsChecks(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	handler := HealthReady(cfg, testLogger(),
		Dependency{Name: "database", Pinger: ok},
		Dependency{Name: "redis", Pinger: ok},
		Dependency{Name: "mongo"},
	)
	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, resp, &body)
	if body.Checks["database"] != "ok" || body.Checks["mongo"] != "skipped" {
		t.Fatalf("unexpected checks %v", body.Checks)
	}
}

func TestHealthReadyFailsOnDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	handler := HealthReady(cfg, testLogger(),
		Dependency{Name: "database", Pinger: pingerFunc(func(context.Context) error { return nil })},
		Dependency{Name: "redis", Pinger: pingerFunc(func(context.Context) error { return errors.New("refused") })},
	)
	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
