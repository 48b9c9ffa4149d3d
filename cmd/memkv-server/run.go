package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/yndnr/memkv/internal/infra/buildinfo"
	"github.com/yndnr/memkv/internal/infra/confloader"
	"github.com/yndnr/memkv/internal/infra/shutdown"
	"github.com/yndnr/memkv/internal/infra/tlsroots"
	"github.com/yndnr/memkv/internal/server/config"
	"github.com/yndnr/memkv/internal/server/httpserver"
	"github.com/yndnr/memkv/internal/server/redisserver"
	"github.com/yndnr/memkv/internal/storage/memory"
	"github.com/yndnr/memkv/internal/telemetry/logger"
	"github.com/yndnr/memkv/internal/telemetry/metric"
)

// shutdownTimeout bounds the total time spent in shutdown hooks.
const shutdownTimeout = 30 * time.Second

type options struct {
	ConfigFile string
	Overrides  map[string]any

	// LogOutput replaces stderr as the log destination when set.
	LogOutput io.Writer

	// started, if set, receives the running servers once every listener is bound.
	started func(*redisserver.Server, *httpserver.Server)
}

func run(ctx context.Context, opts options) error {
	loader := newLoader(opts)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg, opts.LogOutput)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting memkv-server",
		append([]any{"version", info.Version, "commit", info.Commit}, config.LogAttrs(cfg)...)...)

	store := memory.New(memory.WithShardCount(cfg.Storage.ShardCount))

	metrics := metric.NewRegistry()
	metrics.SetBuildInfo(info.Version, info.Commit, runtime.Version())
	metrics.MustRegister(metric.NewStoreCollector(store))

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, slogLogger)

	// Hooks run in reverse order of registration.
	sweeper := memory.NewSweeper(store, cfg.Storage.SweepInterval, slogLogger.With("component", "sweeper"))
	sweeper.OnSweep(func(removed int) {
		metrics.KeysSwept.Add(float64(removed))
	})
	sweeper.Start(ctx)
	shutdownHandler.OnShutdown("sweeper", func(context.Context) error {
		sweeper.Stop()
		return nil
	})

	redisCfg, keyPair, err := config.ToRedisConfig(cfg)
	if err != nil {
		sweeper.Stop()
		return fmt.Errorf("redis config: %w", err)
	}
	redis := redisserver.New(redisCfg, store, metrics, slogLogger)
	if err := redis.Start(ctx); err != nil {
		sweeper.Stop()
		return fmt.Errorf("start redis server: %w", err)
	}
	shutdownHandler.OnShutdown("redis", redis.Shutdown)

	stopWatch := func() {}
	if keyPair != nil {
		stopWatch = watchKeyPair(ctx, keyPair, slogLogger)
		shutdownHandler.OnShutdown("tls-watcher", func(context.Context) error {
			stopWatch()
			return nil
		})
	}

	var admin *httpserver.Server
	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics: metrics,
			Stats:   store,
			Ready: func() error {
				if !redis.Running() {
					return fmt.Errorf("redis listener is not running")
				}
				return nil
			},
			Logger:      slogLogger.With("component", "httpserver"),
			EnableAudit: true,
		})
		admin = httpserver.New(cfg.Server.HTTP.Addr, router, slogLogger)
		if err := admin.Start(); err != nil {
			stopWatch()
			_ = redis.Shutdown(context.Background())
			sweeper.Stop()
			return fmt.Errorf("start http server: %w", err)
		}
		log.Info("admin HTTP listening", "addr", admin.Addr().String())
		shutdownHandler.OnShutdown("http", admin.Shutdown)
	}

	if path := loader.FilePath(); path != "" {
		watcher, err := watchConfig(ctx, loader, redis, slogLogger)
		if err != nil {
			log.Warn("config hot reload disabled", "path", path, "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if opts.started != nil {
		opts.started(redis, admin)
	}

	log.Info("server started")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// watchKeyPair reloads kp on file changes until the returned stop is called.
// stop returns once the watcher has exited.
func watchKeyPair(ctx context.Context, kp *tlsroots.KeyPair, log *slog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := kp.Watch(ctx, tlsroots.WithLogger(log.With("component", "tls"))); err != nil {
			log.Warn("certificate hot reload disabled", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func newLoader(opts options) *confloader.Loader {
	loaderOpts := []confloader.Option{confloader.WithOverrides(opts.Overrides)}
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(opts.ConfigFile))
	}
	return confloader.NewLoader(loaderOpts...)
}

// loadConfig layers file, env and flag values over the defaults and
// validates the result.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig, output io.Writer) (logger.Logger, error) {
	lc := config.ToLoggerConfig(cfg)
	if output != nil {
		lc.Output = output
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// watchConfig reapplies the settings that can change at runtime whenever
// the config file is rewritten. A file that fails to load or validate is
// logged and ignored.
func watchConfig(ctx context.Context, loader *confloader.Loader, redis *redisserver.Server, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.With("component", "config-watcher")))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(loader.FilePath()); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(loader)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("config reload: bad log level", "level", cfg.Log.Level, "error", err)
		}
		redis.Handler().SetRateLimit(cfg.Server.Redis.RateLimit)
		log.Info("config reloaded", "path", path,
			"log_level", cfg.Log.Level,
			"rate_limit", cfg.Server.Redis.RateLimit)
	})

	go watcher.Run(ctx)
	return watcher, nil
}
