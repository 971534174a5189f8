package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
)

// Metrics exposes the daemon's live matcher.Handle state as Prometheus
// gauges, following the collector-registration shape of the wider corpus's
// pkg/metrics.Metrics — narrowed to the counters SPEC_FULL §4.4 names
// (hits_total, num_patterns, heap_mb, and latency percentiles).
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics registers a fresh set of GaugeFuncs backed by handle.Stats(),
// so every scrape reflects the currently loaded artifact set with no
// separate background updater goroutine required.
func NewMetrics(handle *matcher.Handle) *Metrics {
	reg := prometheus.NewRegistry()

	stat := func() matcher.Stats { return handle.Stats() }

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_hits_total",
			Help: "Total number of raw automaton hits served since the matcher handle was created, across reloads.",
		}, func() float64 { return float64(stat().HitsTotal) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_num_patterns",
			Help: "Number of phrase patterns in the currently loaded artifact set.",
		}, func() float64 { return float64(stat().NumPatterns) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_heap_mb",
			Help: "Approximate resident payload table size of the loaded artifact set, in megabytes.",
		}, func() float64 { return stat().HeapMB }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_match_latency_p50_microseconds",
			Help: "Sampled p50 match latency in microseconds.",
		}, func() float64 { return stat().P50 }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_match_latency_p95_microseconds",
			Help: "Sampled p95 match latency in microseconds.",
		}, func() float64 { return stat().P95 }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "phrasefind_match_latency_p99_microseconds",
			Help: "Sampled p99 match latency in microseconds.",
		}, func() float64 { return stat().P99 }),
	)

	return &Metrics{registry: reg}
}

// Handler returns the Prometheus scrape HTTP handler for these collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
