// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

// Namespace prefixes every metric name exported by the service.
const Namespace = "best_stories"
