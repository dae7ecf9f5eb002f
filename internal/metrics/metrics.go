package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Cart records cart mutation outcomes.
type Cart struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCart registers the cart metrics on reg. A nil reg yields a no-op recorder.
func NewCart(reg prometheus.Registerer) *Cart {
	if reg == nil {
		return &Cart{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "mutations_total",
		Help:      "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "mutation_duration_seconds",
		Help:      "Duration of cart mutations including catalog lookup and store commit.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(mutations, duration)
	return &Cart{mutations: mutations, duration: duration}
}

// Observe records one mutation with its result label.
func (c *Cart) Observe(op, result string, elapsed time.Duration) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(op, normalizeLabel(result)).Inc()
	c.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// HTTP records request counts and latencies per route template.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		return &HTTP{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)
	return &HTTP{requests: requests, duration: duration}
}

func (h *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	route = normalizeLabel(route)
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
