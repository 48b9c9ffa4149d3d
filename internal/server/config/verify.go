package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/yndnr/memkv/internal/telemetry/logger"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}

	var errs []error
	errs = append(errs, verifyRedis(&cfg.Server.Redis)...)
	errs = append(errs, verifyHTTP(&cfg.Server.HTTP)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	errs = append(errs, verifyConflicts(cfg)...)
	return errors.Join(errs...)
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...))
}

func verifyRedis(r *RedisConfig) []error {
	var errs []error

	if r.Addr == "" && r.TLSAddr == "" && r.UnixSocket == "" {
		errs = append(errs, invalid("server.redis", "one of addr, tls_addr or unix_socket is required"))
	}
	if r.Addr != "" {
		if err := checkAddr(r.Addr); err != nil {
			errs = append(errs, invalid("server.redis.addr", "%v", err))
		}
	}

	if r.TLSAddr != "" {
		if err := checkAddr(r.TLSAddr); err != nil {
			errs = append(errs, invalid("server.redis.tls_addr", "%v", err))
		}
		if r.TLSCertFile == "" || r.TLSKeyFile == "" {
			errs = append(errs, invalid("server.redis.tls_addr", "tls_cert_file and tls_key_file are required"))
		}
	}
	if (r.TLSCertFile == "") != (r.TLSKeyFile == "") {
		errs = append(errs, invalid("server.redis", "tls_cert_file and tls_key_file must be set together"))
	}
	for field, path := range map[string]string{
		"server.redis.tls_cert_file": r.TLSCertFile,
		"server.redis.tls_key_file":  r.TLSKeyFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, invalid(field, "%v", err))
		}
	}

	for field, d := range map[string]time.Duration{
		"server.redis.read_timeout":  r.ReadTimeout,
		"server.redis.write_timeout": r.WriteTimeout,
		"server.redis.idle_timeout":  r.IdleTimeout,
	} {
		if d < 0 {
			errs = append(errs, invalid(field, "must not be negative"))
		}
	}

	if r.RateLimit < 0 {
		errs = append(errs, invalid("server.redis.rate_limit", "must not be negative"))
	}
	if r.MaxConnections < 0 {
		errs = append(errs, invalid("server.redis.max_connections", "must not be negative"))
	}
	if r.MaxBulkLen <= 0 {
		errs = append(errs, invalid("server.redis.max_bulk_len", "must be positive"))
	}
	if r.MaxArrayLen <= 0 {
		errs = append(errs, invalid("server.redis.max_array_len", "must be positive"))
	}
	return errs
}

func verifyHTTP(h *HTTPConfig) []error {
	if !h.Enabled {
		return nil
	}
	if err := checkAddr(h.Addr); err != nil {
		return []error{invalid("server.http.addr", "%v", err)}
	}
	return nil
}

func verifyStorage(s *StorageSection) []error {
	var errs []error
	if s.ShardCount <= 0 || s.ShardCount&(s.ShardCount-1) != 0 {
		errs = append(errs, invalid("storage.shard_count", "must be a positive power of two, got %d", s.ShardCount))
	}
	if s.SweepInterval < 0 {
		errs = append(errs, invalid("storage.sweep_interval", "must not be negative"))
	}
	return errs
}

func verifyLog(l *LogSection) []error {
	var errs []error
	if _, err := logger.ParseLevel(l.Level); err != nil {
		errs = append(errs, invalid("log.level", "%v", err))
	}
	switch l.Format {
	case "", "json", "text":
	default:
		errs = append(errs, invalid("log.format", "unknown format %q (want json or text)", l.Format))
	}
	return errs
}

// verifyConflicts rejects two listeners bound to the same address.
// Port 0 asks the kernel for a free port and never conflicts.
func verifyConflicts(cfg *ServerConfig) []error {
	seen := make(map[string]string)
	var errs []error

	check := func(field, addr string) {
		if addr == "" {
			return
		}
		if _, port, err := net.SplitHostPort(addr); err != nil || port == "0" {
			return
		}
		if other, ok := seen[addr]; ok {
			errs = append(errs, invalid(field, "address %s already used by %s", addr, other))
			return
		}
		seen[addr] = field
	}

	check("server.redis.addr", cfg.Server.Redis.Addr)
	check("server.redis.tls_addr", cfg.Server.Redis.TLSAddr)
	if cfg.Server.HTTP.Enabled {
		check("server.http.addr", cfg.Server.HTTP.Addr)
	}
	return errs
}

// checkAddr validates a host:port listen address.
func checkAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
