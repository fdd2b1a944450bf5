package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"mercator-hq/custodian/pkg/config"
)

// VersionInfo is the build information served on the version path.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Register mounts the probes on mux. Routes accept GET and HEAD; other
// methods get 405 from the mux.
//
//	GET /healthz                  {"status":"ok", ...}
//	GET /readyz                   200 ready, 503 degraded
//	GET /readyz?check=datastore   one component only
//	GET /version
func Register(mux *http.ServeMux, checker *Checker, cfg *config.HealthConfig, info VersionInfo) {
	mux.Handle("GET "+cfg.LivenessPath, checker.LivenessHandler())
	mux.Handle("GET "+cfg.ReadinessPath, checker.ReadinessHandler())
	mux.Handle("GET "+cfg.VersionPath, VersionHandler(info))
}

// LivenessHandler always answers 200 while the process can serve HTTP.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler runs the registered checks and answers 503 when any of
// them fails. The check query parameter narrows the probe to one
// component; an unknown name is a 404.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status HealthStatus
		if name := r.URL.Query().Get("check"); name != "" {
			var ok bool
			if status, ok = c.CheckOne(r.Context(), name); !ok {
				http.Error(w, "unknown check "+name, http.StatusNotFound)
				return
			}
		} else {
			status = c.CheckReadiness(r.Context())
		}

		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler serves info, filling in the Go version.
func VersionHandler(info VersionInfo) http.HandlerFunc {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, info)
	}
}

// writeJSON writes v with probe-friendly headers. HEAD gets headers only.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
