package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts handled requests by route pattern and status
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connect4_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})

	// httpRequestDuration tracks handler latency
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connect4_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"route"})

	// searchDuration tracks time spent choosing a move
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connect4_search_duration_seconds",
		Help:    "Move search duration in seconds by algorithm",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"algorithm"})

	searchNodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connect4_search_nodes_total",
		Help: "Total positions evaluated by algorithm",
	}, []string{"algorithm"})

	searchCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connect4_search_cache_hits_total",
		Help: "Total transposition cache hits",
	})

	// searchShortcutsTotal counts searches settled by the win or block scan
	searchShortcutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connect4_search_shortcuts_total",
		Help: "Total searches short-circuited by move type",
	}, []string{"move_type"})
)

func observeSearch(algorithm string, elapsed time.Duration, nodes, hits int) {
	searchDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
	searchNodesTotal.WithLabelValues(algorithm).Add(float64(nodes))
	searchCacheHitsTotal.Add(float64(hits))
}

// instrument records request counts and latency under the matched route
// pattern so path parameters do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
