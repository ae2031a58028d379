// Package metrics exposes parse counters and timings in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/gedex/internal/gedcom"
)

// Metrics tracks parse outcomes. Each instance owns its registry so that
// tests and embedded servers do not collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	Parses        *prometheus.CounterVec // by result: ok, io, encoding, structural
	Records       prometheus.Counter
	Unparsed      prometheus.Counter
	Dangling      *prometheus.CounterVec // by reason
	ParseDuration prometheus.Histogram
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
}

// New creates a Metrics instance with every metric registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Parses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gedex_parses_total",
			Help: "Documents parsed, by result",
		}, []string{"result"}),
		Records: f.NewCounter(prometheus.CounterOpts{
			Name: "gedex_records_total",
			Help: "Records registered by successful parses",
		}),
		Unparsed: f.NewCounter(prometheus.CounterOpts{
			Name: "gedex_unparsed_lines_total",
			Help: "Lines that matched neither line grammar",
		}),
		Dangling: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gedex_dangling_references_total",
			Help: "Relationships that could not be applied, by reason",
		}, []string{"reason"}),
		ParseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gedex_parse_duration_seconds",
			Help:    "Duration of a full document parse",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "gedex_parse_cache_hits_total",
			Help: "Parse results served from the tool server cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "gedex_parse_cache_misses_total",
			Help: "Tool server requests that required a parse",
		}),
	}
}

// Observe records one parse. Call with time.Now() taken before the parse.
// A nil receiver does nothing.
func (m *Metrics) Observe(start time.Time, res *gedcom.Result, err error) {
	if m == nil {
		return
	}
	m.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.Parses.WithLabelValues(resultLabel(err)).Inc()
		return
	}
	m.Parses.WithLabelValues("ok").Inc()
	m.Records.Add(float64(res.Registry.Len()))
	m.Unparsed.Add(float64(len(res.Unparsed)))
	for _, d := range res.Dangling {
		m.Dangling.WithLabelValues(d.Reason).Inc()
	}
}

// CacheHit counts a cached parse result. A nil receiver does nothing.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// CacheMiss counts a parse the cache could not serve. A nil receiver does
// nothing.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func resultLabel(err error) string {
	var pe *gedcom.ParseError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "error"
}
