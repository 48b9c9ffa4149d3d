// Package buildinfo exposes the version of the running binary.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/memkv/internal/infra/buildinfo.Version=v1.0.0"
//
// Fields left unset fall back to the module build information embedded by
// the Go toolchain.
package buildinfo
