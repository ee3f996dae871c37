// Package metrics exposes the Prometheus metrics of the table viewer.
// All metrics are defined in their respective packages (pagination, client,
// cache) to maintain modularity and avoid circular dependencies.
//
// This package serves them and documents what is available.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer is the registry served on /metrics. The promauto metrics of the
// pagination, client and cache packages register with the default registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// NewMux returns a handler serving /metrics and /health.
func NewMux() *http.ServeMux {
	return newMux(Gatherer)
}

func newMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

// Serve runs a metrics server on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	logger := logging.NewLogger("metrics")

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Metrics Documentation
//
// Paging Metrics (pkg/pagination):
//   - table_scroll_fetches_issued_total{kind} (Counter): Fetches issued, kind is initial or continuation
//   - table_scroll_guard_rejections_total{reason} (Counter): Triggers ignored (unresolved, loading, exhausted)
//   - table_scroll_stale_responses_total{callback} (Counter): Callbacks of superseded requests
//   - table_scroll_exhaustions_total (Counter): Times the server signalled the end of data
//   - table_scroll_resets_total{cause} (Counter): Paging resets (page_size, reload, fresh_load)
//   - table_scroll_fetch_failures_total (Counter): Failed fetches of current requests
//
// Cache Metrics (pkg/cache):
//   - table_scroll_cache_hits_total (Counter): Continuation pages served from Redis
//   - table_scroll_cache_misses_total (Counter): Cache misses
//   - table_scroll_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - table_scroll_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - table_scroll_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - table_scroll_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - table_scroll_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - table_scroll_rows_fetched_total{endpoint} (Counter): Rows parsed from responses
//
// Retry Metrics (pkg/client):
//   - table_scroll_retries_total{error_class} (Counter): Retry attempts by error class
//   - table_scroll_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - table_scroll_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(table_scroll_cache_hits_total[5m])) /
//   (sum(rate(table_scroll_cache_hits_total[5m])) + sum(rate(table_scroll_cache_misses_total[5m])))
//
//   # Superseded responses per reset
//   rate(table_scroll_stale_responses_total{callback="completed"}[5m]) /
//   rate(table_scroll_resets_total{cause="page_size"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(table_scroll_request_duration_seconds_bucket[5m]))
