package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "upstream_requests_total",
		Namespace: Namespace,
		Help:      "Requests sent to the upstream content API by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	UpstreamLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "upstream_latency_seconds",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of upstream content API calls in seconds.",
	}, []string{"endpoint"})
)
