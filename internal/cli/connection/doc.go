// Package connection manages memkv-cli connections.
//
//   - client.go: RESP client over TCP, TLS or a Unix socket
//   - manager.go: current connection for the REPL, with reconnect
//   - http.go: admin HTTP client for /health, /ready and /stats
//
// Server targets are written as host[:port], tcp://host[:port],
// tls://host[:port], unix:///path/to/socket or a bare socket path.
package connection
