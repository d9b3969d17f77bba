package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	// Booking lifecycle
	Transitions       *prometheus.CounterVec
	ConcurrentUpdates prometheus.Counter

	// Payments
	WebhookEvents      *prometheus.CounterVec
	PaymentConflicts   prometheus.Counter
	ReconciledPayments *prometheus.CounterVec
	GatewayCalls       *prometheus.CounterVec
	GatewayLatency     *prometheus.HistogramVec

	// HTTP
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// New creates all application metrics on a dedicated registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Total number of applied booking status transitions",
		}, []string{"from", "to"}),
		ConcurrentUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_concurrent_updates_total",
			Help:      "Total number of version conflicts detected while saving a booking",
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of gateway webhook events by type and outcome",
		}, []string{"type", "outcome"}),
		PaymentConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_conflicts_total",
			Help:      "Total number of contradictory gateway reports for one booking",
		}),
		ReconciledPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_payments_total",
			Help:      "Total number of pending payments examined by the reconciler",
		}, []string{"outcome"}),
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Total number of payment gateway calls",
		}, []string{"operation", "status"}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of payment gateway calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
		}, []string{"method", "path", "status"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Transitions,
		m.ConcurrentUpdates,
		m.WebhookEvents,
		m.PaymentConflicts,
		m.ReconciledPayments,
		m.GatewayCalls,
		m.GatewayLatency,
		m.RequestDuration,
		m.RequestTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGatewayCall records one gateway round trip.
func (m *Metrics) ObserveGatewayCall(op string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GatewayCalls.WithLabelValues(op, status).Inc()
	m.GatewayLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Middleware records request totals and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())
		m.RequestTotal.WithLabelValues(r.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
