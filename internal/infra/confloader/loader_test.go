package confloader

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Redis struct {
			Addr        string        `koanf:"addr"`
			ReadTimeout time.Duration `koanf:"read_timeout"`
			MaxConns    int           `koanf:"max_connections"`
		} `koanf:"redis"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
	ignored string
}

func defaults() *testConfig {
	cfg := &testConfig{}
	cfg.Server.Redis.Addr = "127.0.0.1:6379"
	cfg.Server.Redis.ReadTimeout = 30 * time.Second
	cfg.Log.Level = "info"
	return cfg
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memkv.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestKnownKeys(t *testing.T) {
	keys, err := knownKeys(&testConfig{})
	if err != nil {
		t.Fatalf("knownKeys() error = %v", err)
	}
	sort.Strings(keys)
	want := []string{
		"log.level",
		"server.redis.addr",
		"server.redis.max_connections",
		"server.redis.read_timeout",
	}
	if len(keys) != len(want) {
		t.Fatalf("knownKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestLoader_DefaultsKept(t *testing.T) {
	cfg := defaults()
	if err := NewLoader(WithEnvPrefix("MEMKV_TEST_NONE_")).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Redis.Addr != "127.0.0.1:6379" || cfg.Log.Level != "info" {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoader_File(t *testing.T) {
	path := writeFile(t, `
server:
  redis:
    addr: "0.0.0.0:7000"
    read_timeout: 5s
log:
  level: debug
`)
	cfg := defaults()
	if err := NewLoader(WithConfigFile(path), WithEnvPrefix("MEMKV_TEST_NONE_")).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "0.0.0.0:7000" {
		t.Errorf("addr = %q", cfg.Server.Redis.Addr)
	}
	if cfg.Server.Redis.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout = %v", cfg.Server.Redis.ReadTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoader_FileNotFound(t *testing.T) {
	err := NewLoader(WithConfigFile("/nonexistent/memkv.yaml")).Load(defaults())
	if err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  redis:\n    addr: \"0.0.0.0:7000\"\n")
	t.Setenv("MEMKV_SERVER_REDIS_ADDR", "10.0.0.1:6380")
	t.Setenv("MEMKV_SERVER_REDIS_READ_TIMEOUT", "2s")
	t.Setenv("MEMKV_SERVER_REDIS_MAX_CONNECTIONS", "64")

	cfg := defaults()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "10.0.0.1:6380" {
		t.Errorf("addr = %q, want env value", cfg.Server.Redis.Addr)
	}
	if cfg.Server.Redis.ReadTimeout != 2*time.Second {
		t.Errorf("read_timeout = %v, want 2s", cfg.Server.Redis.ReadTimeout)
	}
	if cfg.Server.Redis.MaxConns != 64 {
		t.Errorf("max_connections = %d, want 64", cfg.Server.Redis.MaxConns)
	}
}

func TestLoader_IgnoresUnknownEnv(t *testing.T) {
	t.Setenv("MEMKV_SERVER", "127.0.0.1:6390")
	t.Setenv("MEMKV_CONFIG", "/etc/memkv/memkv.yaml")

	cfg := defaults()
	if err := NewLoader().Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Redis.Addr != defaults().Server.Redis.Addr {
		t.Errorf("addr = %q, want default", cfg.Server.Redis.Addr)
	}
}

func TestLoader_OverridesWin(t *testing.T) {
	t.Setenv("MEMKV_LOG_LEVEL", "warn")

	cfg := defaults()
	l := NewLoader(WithOverrides(map[string]any{
		"log.level":         "error",
		"server.redis.addr": ":9999",
	}))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, want override", cfg.Log.Level)
	}
	if cfg.Server.Redis.Addr != ":9999" {
		t.Errorf("addr = %q, want override", cfg.Server.Redis.Addr)
	}
	if got := l.Get("log.level"); got != "error" {
		t.Errorf("Get(log.level) = %v", got)
	}
}

func TestLoader_NestedOverrides(t *testing.T) {
	path := writeFile(t, "server:\n  redis:\n    addr: \"0.0.0.0:7000\"\n    max_connections: 10\n")

	cfg := defaults()
	l := NewLoader(WithConfigFile(path), WithEnvPrefix("MEMKV_TEST_NONE_"), WithOverrides(map[string]any{
		"server.redis.read_timeout":    "3s",
		"server.redis.max_connections": 20,
	}))
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Overriding one leaf keeps its file-set siblings.
	if cfg.Server.Redis.Addr != "0.0.0.0:7000" {
		t.Errorf("addr = %q, want file value", cfg.Server.Redis.Addr)
	}
	if cfg.Server.Redis.ReadTimeout != 3*time.Second {
		t.Errorf("read_timeout = %v, want 3s", cfg.Server.Redis.ReadTimeout)
	}
	if cfg.Server.Redis.MaxConns != 20 {
		t.Errorf("max_connections = %d, want 20", cfg.Server.Redis.MaxConns)
	}
}
