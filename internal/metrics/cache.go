package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_hits_total",
		Namespace: Namespace,
		Help:      "The total number of cache hits since the application started.",
	}, []string{"cache"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_misses_total",
		Namespace: Namespace,
		Help:      "The total number of cache misses since the application started.",
	}, []string{"cache"})

	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_errors_total",
		Namespace: Namespace,
		Help:      "The total number of failed cache operations.",
	}, []string{"cache", "op"})

	CacheReadLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_read_latency_seconds",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache read operations in seconds.",
	}, []string{"cache"})

	CacheWriteLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_write_latency_seconds",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache write operations in seconds.",
	}, []string{"cache"})
)

// CacheRecorder records metrics for a single cache driver.
type CacheRecorder struct {
	driver string
}

// NewCacheRecorder returns a recorder labelled with driver.
func NewCacheRecorder(driver string) *CacheRecorder {
	return &CacheRecorder{driver: driver}
}

// RecordHit marks a cache hit and observes latency since start
func (r *CacheRecorder) RecordHit(start time.Time) {
	CacheHitsTotal.WithLabelValues(r.driver).Inc()
	CacheReadLatencySeconds.WithLabelValues(r.driver).Observe(time.Since(start).Seconds())
}

// RecordMiss marks a cache miss
func (r *CacheRecorder) RecordMiss(start time.Time) {
	CacheMissesTotal.WithLabelValues(r.driver).Inc()
	CacheReadLatencySeconds.WithLabelValues(r.driver).Observe(time.Since(start).Seconds())
}

// RecordWrite observes cache write latency since start
func (r *CacheRecorder) RecordWrite(start time.Time) {
	CacheWriteLatencySeconds.WithLabelValues(r.driver).Observe(time.Since(start).Seconds())
}

// RecordError counts a failed operation.
func (r *CacheRecorder) RecordError(op string) {
	CacheErrorsTotal.WithLabelValues(r.driver, op).Inc()
}
