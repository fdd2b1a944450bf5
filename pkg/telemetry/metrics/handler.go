package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxScrapesInFlight = 4
	scrapeTimeout      = 10 * time.Second
)

// Handler serves the collector's registry for Prometheus scrapes. Scrape
// counts and gather errors are exported from the same registry as
// promhttp_metric_handler_*. A metric that fails to gather is logged and
// the rest are still served. A nil collector serves 404.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}

	errorLog := slog.NewLogLogger(
		slog.Default().With("component", "telemetry.metrics").Handler(),
		slog.LevelWarn,
	)
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		ErrorLog:            errorLog,
		Registry:            c.registry,
		MaxRequestsInFlight: maxScrapesInFlight,
		Timeout:             scrapeTimeout,
	}))
}
