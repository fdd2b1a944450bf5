// Package telemetry provides observability for the custodian retention
// engine.
//
// # Components
//
//   - logging: structured slog logging with retention context fields and
//     PII redaction
//   - metrics: Prometheus metrics for executions, holds, approvals and
//     scheduler ticks
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, health.VersionInfo{Version: version})
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tel.Health().RegisterCheck("datastore", health.PingCheck(store))
//	if h := tel.Handler(); h != nil {
//		go http.ListenAndServe(cfg.Server.ListenAddress, h)
//	}
//
// # PII Protection
//
// When redact_pii is enabled, e-mail identities (approvers, hold owners),
// bearer tokens, API keys and passwords are masked in log messages and
// attributes before they are written:
//
//   - legal@example.com becomes l***@example.com
//   - api_key=sk-abc123 becomes api_key=***
package telemetry
