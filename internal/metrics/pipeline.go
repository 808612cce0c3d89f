package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "pipeline_duration_seconds",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "Time to produce a best stories result, by where it came from.",
	}, []string{"source"})

	StoriesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "stories_dropped_total",
		Namespace: Namespace,
		Help:      "Stories left out of a result because their fetch failed or returned nothing.",
	})
)
