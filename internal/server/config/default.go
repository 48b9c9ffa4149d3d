package config

import (
	"time"

	"github.com/yndnr/memkv/pkg/cmap"
	"github.com/yndnr/memkv/pkg/resp"
)

// Default configuration values.
const (
	DefaultRedisAddr = "127.0.0.1:6379"
	DefaultHTTPAddr  = "127.0.0.1:9121"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultMaxBulkLen  = resp.MaxBulkLen
	DefaultMaxArrayLen = resp.MaxArrayLen

	DefaultShardCount    = cmap.DefaultShardCount
	DefaultSweepInterval = time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:         DefaultRedisAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				MaxBulkLen:   DefaultMaxBulkLen,
				MaxArrayLen:  DefaultMaxArrayLen,
			},
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			ShardCount:    DefaultShardCount,
			SweepInterval: DefaultSweepInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
