// Package config holds memkv-cli settings from ~/.memkv/cli.yaml.
//
// The file supplies defaults for the global flags (server, admin address,
// output format, timeout, CA bundle) and named connection aliases:
//
//	server: 127.0.0.1:6379
//	output: table
//	timeout: 5s
//	connections:
//	  prod: tls://cache.internal:6380
//
// Flags and MEMKV_* environment variables take precedence.
package config
