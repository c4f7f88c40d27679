// Package metrics provides Prometheus metrics for the Shoply API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoply_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoply_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	chatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoply_chat_turns_total",
			Help: "Total number of chat turns by classified intent",
		},
		[]string{"intent"},
	)

	ordersCommittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoply_chat_orders_committed_total",
			Help: "Total number of chat-confirmed order commits by result",
		},
		[]string{"result"},
	)

	assistantRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoply_assistant_requests_total",
			Help: "Total number of RAG assistant calls by status",
		},
		[]string{"status"},
	)

	assistantDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shoply_assistant_request_duration_seconds",
			Help:    "Duration of RAG assistant calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ObserveChatTurn records a classified chat turn.
func ObserveChatTurn(intent string) {
	chatTurnsTotal.WithLabelValues(intent).Inc()
}

// ObserveCommit records a chat-driven commit attempt.
func ObserveCommit(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ordersCommittedTotal.WithLabelValues(result).Inc()
}

// ObserveAssistant records one RAG assistant call.
func ObserveAssistant(err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	assistantRequestsTotal.WithLabelValues(status).Inc()
	assistantDuration.Observe(duration.Seconds())
}

// Middleware records request counts and latencies per chi route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
