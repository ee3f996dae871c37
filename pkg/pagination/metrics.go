package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for paging decisions.
var (
	fetchesIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_scroll_fetches_issued_total",
		Help: "Total fetches issued by the paging controller by kind",
	}, []string{"kind"}) // "initial", "continuation"

	guardRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_scroll_guard_rejections_total",
		Help: "Total fetch attempts rejected by the paging guard by reason",
	}, []string{"reason"}) // "unresolved", "loading", "exhausted"

	staleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_scroll_stale_responses_total",
		Help: "Total callbacks of superseded requests that were discarded",
	}, []string{"callback"}) // "starting", "completed", "failed"

	exhaustionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "table_scroll_exhaustions_total",
		Help: "Total times the server signalled that no more rows exist",
	})

	resetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "table_scroll_resets_total",
		Help: "Total paging state resets by cause",
	}, []string{"cause"}) // "page_size", "reload", "fresh_load"

	fetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "table_scroll_fetch_failures_total",
		Help: "Total failed fetches reported to the paging controller",
	})
)

func requestKind(req Request) string {
	if req.IsContinuation() {
		return "continuation"
	}
	return "initial"
}
