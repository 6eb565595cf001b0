// Package observability exposes Prometheus metrics for overlap resolution
// and the HTTP surface.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the meeting-point metrics and the handler that serves them.
type Collector struct {
	gatherer prometheus.Gatherer

	Resolutions     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	CacheEntries    *prometheus.GaugeVec
	Candidates      *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	resolutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_resolutions_total",
		Help: "Overlap resolutions, labeled by resulting region kind.",
	}, []string{"kind"}), "meetpoint_resolutions_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetpoint_resolve_duration_seconds",
		Help:    "Time spent intersecting reachability sets.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"kind"}), "meetpoint_resolve_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_region_cache_lookups_total",
		Help: "Region cache lookups, labeled by hit or miss.",
	}, []string{"result"}), "meetpoint_region_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	entries, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meetpoint_region_cache_entries",
		Help: "Regions held in the cache after the last cleanup sweep, labeled fresh or stale.",
	}, []string{"state"}), "meetpoint_region_cache_entries")
	if err != nil {
		return nil, err
	}

	candidates, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_candidates_total",
		Help: "Candidates seen by the ranker, labeled by whether they were returned or dropped.",
	}, []string{"outcome"}), "meetpoint_candidates_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetpoint_http_requests_total",
		Help: "HTTP requests, labeled by endpoint, method and status code.",
	}, []string{"endpoint", "method", "code"}), "meetpoint_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetpoint_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint", "method"}), "meetpoint_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Resolutions:     resolutions,
		ResolveDuration: duration,
		CacheLookups:    lookups,
		CacheEntries:    entries,
		Candidates:      candidates,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
	}, nil
}

// ObserveResolution records one resolution and how long it took
func (c *Collector) ObserveResolution(kind string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Resolutions.WithLabelValues(kind).Inc()
	c.ResolveDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a region cache hit or miss
func (c *Collector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheEntries sets the region cache size gauges
func (c *Collector) ObserveCacheEntries(fresh, stale int) {
	if c == nil {
		return
	}
	c.CacheEntries.WithLabelValues("fresh").Set(float64(fresh))
	c.CacheEntries.WithLabelValues("stale").Set(float64(stale))
}

// ObserveCandidates records how many candidates were returned and dropped
func (c *Collector) ObserveCandidates(returned, dropped int) {
	if c == nil {
		return
	}
	c.Candidates.WithLabelValues("returned").Add(float64(returned))
	c.Candidates.WithLabelValues("dropped").Add(float64(dropped))
}

// Instrument wraps an HTTP handler with request count and latency metrics
func (c *Collector) Instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if c == nil {
		return next
	}
	labels := prometheus.Labels{"endpoint": endpoint}
	counted := promhttp.InstrumentHandlerCounter(c.HTTPRequests.MustCurryWith(labels), next)
	return promhttp.InstrumentHandlerDuration(c.HTTPDurations.MustCurryWith(labels), counted)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
