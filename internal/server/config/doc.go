// Package config defines the memkv-server configuration.
//
//   - schema.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: safe log attributes
//   - convert.go: mapping to component configs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// MEMKV_* environment variables and command-line flags.
package config
