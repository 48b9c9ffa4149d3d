// Package redisserver serves the key-value store over RESP2.
//
// A Server accepts connections on TCP, optionally TLS and a Unix socket,
// and runs one goroutine per connection. Each goroutine decodes requests
// with a resp.Reader, hands them to the CommandHandler and writes the
// replies back in order, so pipelined requests are answered in sequence.
//
// Supported commands:
//   - PING [msg], ECHO msg, QUIT
//   - GET, SET key value [EX seconds], DEL, EXISTS
//   - EXPIRE, PERSIST, TTL
//   - KEYS, DBSIZE, FLUSHDB
package redisserver
