package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated       *prometheus.CounterVec
	ReconcileEvents     *prometheus.CounterVec
	ReconcileCandidates *prometheus.CounterVec
}

// NewServerMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brunopizza",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "brunopizza",
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brunopizza",
		Name:      "orders_created_total",
		Help:      "Orders durably created, by payment method.",
	}, []string{"payment_method"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brunopizza",
		Subsystem: "reconcile",
		Name:      "events_total",
		Help:      "Payment webhook events processed, by outcome.",
	}, []string{"outcome"})
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brunopizza",
		Subsystem: "reconcile",
		Name:      "candidates_total",
		Help:      "Matching candidate orders, by outcome (paid, conflict, failed).",
	}, []string{"outcome"})

	reg.MustRegister(requests, latency, orders, events, candidates)
	return &ServerMetrics{
		Requests:            requests,
		LatencyMS:           latency,
		OrdersCreated:       orders,
		ReconcileEvents:     events,
		ReconcileCandidates: candidates,
	}
}

// Middleware records count and latency per matched route.
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.Requests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// The helpers below are nil-safe so services can run without a registry.

func (m *ServerMetrics) OrderCreated(paymentMethod string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(paymentMethod).Inc()
}

func (m *ServerMetrics) ReconcileEvent(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileEvents.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) ReconcileCandidate(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileCandidates.WithLabelValues(outcome).Inc()
}
