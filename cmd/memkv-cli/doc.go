// Command memkv-cli is the command-line client for memkv-server.
//
// With a command it sends one request and exits; without one it starts an
// interactive session:
//
//	memkv-cli -s 127.0.0.1:6379 set user:1 alice
//	memkv-cli -o json get user:1
//	memkv-cli admin stats
//	memkv-cli
//
// Settings come from ~/.memkv/cli.yaml and are overridden by flags and
// MEMKV_SERVER / MEMKV_ADMIN.
package main
