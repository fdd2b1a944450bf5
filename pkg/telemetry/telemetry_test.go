package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/health"
)

func TestNew_HandlerDisabled(t *testing.T) {
	cfg := config.NewDefault().Telemetry

	tel, err := New(&cfg, health.VersionInfo{Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Handler() != nil {
		t.Error("Handler() should be nil when metrics and health are disabled")
	}
	if tel.Tracer().Enabled() {
		t.Error("tracing should be disabled by default")
	}
}

func TestNew_HandlerServesMetricsAndHealth(t *testing.T) {
	cfg := config.NewDefault().Telemetry
	cfg.Metrics.Enabled = true
	cfg.Health.Enabled = true

	tel, err := New(&cfg, health.VersionInfo{Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.Metrics().RecordBlocked("legal_hold")

	srv := httptest.NewServer(tel.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + cfg.Metrics.Path)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), "custodian_retention_executions_blocked_total") {
		t.Error("metrics output missing executions_blocked_total")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing Go runtime collector")
	}

	resp, err = http.Get(srv.URL + cfg.Health.ReadinessPath)
	if err != nil {
		t.Fatalf("GET readiness: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness = %d, want 200", resp.StatusCode)
	}
}
