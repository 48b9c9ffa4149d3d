package config

import "time"

// ServerConfig is the root configuration for memkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr        string `koanf:"addr"`
	TLSAddr     string `koanf:"tls_addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	UnixSocket  string `koanf:"unix_socket"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP; 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	MaxBulkLen     int `koanf:"max_bulk_len"`
	MaxArrayLen    int `koanf:"max_array_len"`
	MaxConnections int `koanf:"max_connections"`
}

// HTTPConfig configures the admin HTTP server (/health, /ready, /metrics).
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// StorageSection configures the in-memory store.
type StorageSection struct {
	// ShardCount must be a power of two.
	ShardCount int `koanf:"shard_count"`

	// SweepInterval is the period of the background expiry sweep; 0 disables it.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
