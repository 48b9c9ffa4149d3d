package config

import "path/filepath"

// LogAttrs returns the effective configuration as slog key-value pairs
// for the startup log. The certificate path is cut to its base name and
// the private key path is masked.
func LogAttrs(cfg *ServerConfig) []any {
	r := cfg.Server.Redis
	return []any{
		"redis_addr", r.Addr,
		"redis_tls_addr", r.TLSAddr,
		"redis_tls_cert", baseName(r.TLSCertFile),
		"redis_tls_key", maskPath(r.TLSKeyFile),
		"redis_unix_socket", r.UnixSocket,
		"rate_limit", r.RateLimit,
		"max_connections", r.MaxConnections,
		"http_enabled", cfg.Server.HTTP.Enabled,
		"http_addr", cfg.Server.HTTP.Addr,
		"shard_count", cfg.Storage.ShardCount,
		"sweep_interval", cfg.Storage.SweepInterval.String(),
		"log_level", cfg.Log.Level,
		"log_format", cfg.Log.Format,
	}
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// maskPath hides a private key location entirely.
func maskPath(path string) string {
	if path == "" {
		return ""
	}
	return "****"
}
