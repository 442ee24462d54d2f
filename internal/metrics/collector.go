package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	fetchesInFlight  prometheus.Gauge

	tokenRefreshes *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		upstreamRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendario_upstream_requests_total",
				Help: "Cloudbeds API requests by property, operation and outcome",
			},
			[]string{"property", "operation", "outcome"},
		),
		upstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "calendario_upstream_request_duration_seconds",
				Help:    "Cloudbeds API request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"property", "operation"},
		),
		fetchesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "calendario_fetches_in_flight",
				Help: "Property fetches currently running",
			},
		),
		tokenRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendario_token_refreshes_total",
				Help: "OAuth token refresh attempts by property and outcome",
			},
			[]string{"property", "outcome"},
		),
		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "calendario_response_cache_hits_total",
				Help: "Aggregate responses served from cache",
			},
		),
		cacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "calendario_response_cache_misses_total",
				Help: "Aggregate requests that had to query Cloudbeds",
			},
		),
	}
}

func (c *Collector) RecordUpstreamRequest(property, operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.upstreamRequests.WithLabelValues(property, operation, outcome).Inc()
	c.upstreamDuration.WithLabelValues(property, operation).Observe(duration.Seconds())
}

func (c *Collector) RecordTokenRefresh(property string, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.tokenRefreshes.WithLabelValues(property, outcome).Inc()
}

func (c *Collector) FetchStarted() {
	if c == nil {
		return
	}
	c.fetchesInFlight.Inc()
}

func (c *Collector) FetchFinished() {
	if c == nil {
		return
	}
	c.fetchesInFlight.Dec()
}

func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}
