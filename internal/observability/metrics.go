package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	previewsTotal    *prometheus.CounterVec
	confirmsTotal    *prometheus.CounterVec
	confirmConflicts prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cadenza_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cadenza_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	previews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cadenza_adjustment_previews_total",
		Help: "Adjustment previews calculated, by adjustment type.",
	}, []string{"type"})
	confirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cadenza_adjustment_confirms_total",
		Help: "Adjustments confirmed, by adjustment type.",
	}, []string{"type"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cadenza_adjustment_confirm_conflicts_total",
		Help: "Confirm calls rejected because the draft was already processed.",
	})
	registry.MustRegister(requests, duration, previews, confirms, conflicts)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		previewsTotal:    previews,
		confirmsTotal:    confirms,
		confirmConflicts: conflicts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// PreviewCalculated counts a calculated preview.
func (m *Metrics) PreviewCalculated(adjustmentType string) {
	if m != nil {
		m.previewsTotal.WithLabelValues(adjustmentType).Inc()
	}
}

// AdjustmentConfirmed counts an applied adjustment.
func (m *Metrics) AdjustmentConfirmed(adjustmentType string) {
	if m != nil {
		m.confirmsTotal.WithLabelValues(adjustmentType).Inc()
	}
}

// ConfirmConflict counts a confirm rejected by the draft-status guard.
func (m *Metrics) ConfirmConflict() {
	if m != nil {
		m.confirmConflicts.Inc()
	}
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
