// Package metric provides Prometheus metrics for memkv.
//
//   - prometheus.go: metric registry, instruments and the /metrics handler
//   - collector.go: collector reading store counters at scrape time
//
// Metrics are exposed at /metrics on the admin HTTP server.
package metric
