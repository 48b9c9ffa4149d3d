// Package httpserver provides the admin HTTP server for memkv.
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /ready: readiness of the RESP listener
//   - GET /stats: store counters as JSON
//   - GET /metrics: Prometheus exposition
//
// Every route runs behind the Recover and RequestID middlewares; Audit
// logging is optional.
package httpserver
