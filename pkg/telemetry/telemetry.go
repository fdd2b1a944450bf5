package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/health"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// Telemetry bundles the logger, metrics collector, tracer and health
// checker built from one TelemetryConfig.
type Telemetry struct {
	cfg     *config.TelemetryConfig
	info    health.VersionInfo
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds every telemetry component and installs the logger as the
// slog default, so packages that log through slog.Default pick up context
// fields and redaction.
func New(cfg *config.TelemetryConfig, info health.VersionInfo) (*Telemetry, error) {
	logger, err := logging.New(logging.ConfigFrom(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logger.SetDefault()

	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	return &Telemetry{
		cfg:     cfg,
		info:    info,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, registry),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
	}, nil
}

func (t *Telemetry) Logger() *logging.Logger     { return t.logger }
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }
func (t *Telemetry) Tracer() *tracing.Tracer     { return t.tracer }
func (t *Telemetry) Health() *health.Checker     { return t.health }

// Handler returns a mux serving the enabled metrics and health endpoints,
// or nil when neither is enabled.
func (t *Telemetry) Handler() http.Handler {
	if !t.cfg.Metrics.Enabled && !t.cfg.Health.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	if t.cfg.Metrics.Enabled {
		mux.Handle(t.cfg.Metrics.Path, t.metrics.Handler())
	}
	if t.cfg.Health.Enabled {
		health.Register(mux, t.health, &t.cfg.Health, t.info)
	}
	return mux
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer: %w", err))
	}
	return errors.Join(errs...)
}
