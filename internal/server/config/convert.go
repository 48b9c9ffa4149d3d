package config

import (
	"fmt"
	"os"

	"github.com/yndnr/memkv/internal/infra/tlsroots"
	"github.com/yndnr/memkv/internal/server/redisserver"
	"github.com/yndnr/memkv/internal/telemetry/logger"
	"github.com/yndnr/memkv/pkg/resp"
)

// ToRedisConfig converts cfg to a redisserver.Config. When a TLS listener
// is configured the key pair is loaded and returned so the caller can
// watch it for rotation; otherwise the key pair is nil.
func ToRedisConfig(cfg *ServerConfig) (*redisserver.Config, *tlsroots.KeyPair, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("server config is nil")
	}
	r := cfg.Server.Redis

	limits := resp.DefaultLimits()
	limits.MaxBulkLen = r.MaxBulkLen
	limits.MaxArrayLen = r.MaxArrayLen

	out := &redisserver.Config{
		Addr:           r.Addr,
		TLSAddr:        r.TLSAddr,
		UnixSocket:     r.UnixSocket,
		ReadTimeout:    r.ReadTimeout,
		WriteTimeout:   r.WriteTimeout,
		IdleTimeout:    r.IdleTimeout,
		MaxConnections: r.MaxConnections,
		RateLimit:      r.RateLimit,
		Limits:         limits,
	}

	if r.TLSAddr == "" {
		return out, nil, nil
	}
	kp, err := tlsroots.LoadKeyPair(r.TLSCertFile, r.TLSKeyFile)
	if err != nil {
		return nil, nil, err
	}
	out.TLSConfig = kp.ServerConfig()
	return out, kp, nil
}

// ToLoggerConfig converts the log section to a logger.Config writing to stderr.
func ToLoggerConfig(cfg *ServerConfig) logger.Config {
	lc := logger.DefaultConfig()
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	lc.Output = os.Stderr
	return lc
}
