package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	finalize        *prometheus.CounterVec
	quotes          *prometheus.CounterVec
	carrierRequests *prometheus.CounterVec
	latencyMS       *prometheus.HistogramVec
	gatherer        prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		finalize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "finalize_total",
			Help:      "COD order finalization attempts by outcome.",
		}, []string{"outcome"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "shipping_quote_total",
			Help:      "Shipping quotes by route and whether the fallback charge was used.",
		}, []string{"route", "fallback"}),
		carrierRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "carrier_requests_total",
			Help:      "Carrier API calls by endpoint and HTTP status (0 = transport error).",
		}, []string{"endpoint", "status"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		gatherer: reg,
	}
	reg.MustRegister(m.finalize, m.quotes, m.carrierRequests, m.latencyMS)
	return m
}

func (m *Metrics) Finalize(outcome string) {
	if m == nil {
		return
	}
	m.finalize.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Quote(route string, fallback bool) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(route, strconv.FormatBool(fallback)).Inc()
}

func (m *Metrics) CarrierRequest(endpoint string, status int) {
	if m == nil {
		return
	}
	m.carrierRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveHTTP(route string, ms float64) {
	if m == nil {
		return
	}
	m.latencyMS.WithLabelValues(route).Observe(ms)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
