// Package health provides liveness, readiness and version endpoints for the
// custodian daemon.
//
// Readiness aggregates component checks that run concurrently with a
// per-check timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("repository", health.PingCheck(repo))
//	checker.RegisterCheck("datastore", health.PingCheck(store))
//	checker.RegisterCheck("scheduler", health.StalenessCheck(sched.LastTick, 2*interval, 2*interval))
//
//	mux := http.NewServeMux()
//	health.Register(mux, checker, &cfg.Telemetry.Health, info)
//
// Liveness only reports that the process is running. Readiness answers 503
// when any check is unhealthy.
package health
