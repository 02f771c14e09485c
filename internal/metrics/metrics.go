package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExtractRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_extract_requests_total",
			Help: "Total number of calls to the extraction service",
		},
		[]string{"operation", "outcome"},
	)

	ExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "procura_extract_duration_seconds",
			Help:    "Duration of extraction service calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_tasks_total",
			Help: "Per-item orchestrator tasks by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	EntriesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_entries_dropped_total",
			Help: "Malformed entries discarded while parsing service output",
		},
		[]string{"stage"},
	)

	ProductsFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procura_products_found_total",
			Help: "Product records accepted into search reports",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_cache_lookups_total",
			Help: "Extraction cache lookups by result",
		},
		[]string{"result"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_proxy_failures_total",
			Help: "Total number of egress proxy failures",
		},
		[]string{"proxy_url"},
	)
)

// RecordExtract updates the extraction call metrics.
func RecordExtract(operation, outcome string, d time.Duration) {
	ExtractRequestsTotal.WithLabelValues(operation, outcome).Inc()
	ExtractDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordTask counts one per-item task (a site search, a compliance check).
func RecordTask(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	TasksTotal.WithLabelValues(stage, outcome).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
