// Command memkv-server runs the in-memory key-value server.
//
// It serves RESP2 on TCP (optionally TLS and a Unix socket) and an admin
// HTTP endpoint with /health, /ready, /stats and /metrics.
//
// Configuration is read from an optional YAML file, MEMKV_* environment
// variables and flags, in increasing priority:
//
//	memkv-server --config /etc/memkv/memkv.yaml --redis-addr 0.0.0.0:6379
//
// Changes to log.level and server.redis.rate_limit in the config file are
// applied without a restart.
package main
