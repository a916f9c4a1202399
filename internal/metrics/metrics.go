// Package metrics exposes Prometheus instrumentation for inbound routes,
// outbound provider calls and store operations.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsync_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedsync_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	outboundRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsync_outbound_requests_total",
		Help: "Total number of requests sent to calendar providers.",
	}, []string{"client", "method", "code"})

	outboundRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedsync_outbound_request_duration_seconds",
		Help:    "Histogram of latencies for requests sent to calendar providers.",
		Buckets: prometheus.DefBuckets,
	}, []string{"client", "method", "code"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedsync_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})
)

// Middleware records request metrics labelled with the chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// The pattern is only complete once chi has routed the request.
			route := routeFromContext(r.Context())
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentTransport counts and times every request next sends, labelled
// with client.
func InstrumentTransport(client string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	labels := prometheus.Labels{"client": client}
	webdav := promhttp.WithExtraMethods("PROPFIND", "REPORT")
	return promhttp.InstrumentRoundTripperCounter(
		outboundRequestsTotal.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(outboundRequestDuration.MustCurryWith(labels), next, webdav),
		webdav,
	)
}

// ObserveDBLatency records database latency for a given operation,
// associating it with the route when called inside a request.
func ObserveDBLatency(ctx context.Context, operation string, start time.Time) {
	dbLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
}

// routeFromContext returns the chi route pattern matched so far, or
// "unknown" outside a routed request. Raw paths are never used as labels.
func routeFromContext(ctx context.Context) string {
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
