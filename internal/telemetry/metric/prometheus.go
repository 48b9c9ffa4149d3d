package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memkv"

// Command outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter

	// Connection metrics
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	ConnectionsRejected prometheus.Counter
	ProtocolErrors      *prometheus.CounterVec

	// Storage metrics
	KeysSwept prometheus.Counter

	BuildInfo *prometheus.GaugeVec
}

// NewRegistry creates a registry with all memkv instruments plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Commands processed, by command name and outcome.",
	}, []string{"command", "status"})

	r.CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_duration_seconds",
		Help:      "Command execution latency.",
		Buckets:   []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .01},
	}, []string{"command"})

	r.RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_rate_limited_total",
		Help:      "Commands rejected by the per-client rate limiter.",
	})

	r.ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connections",
		Name:      "active",
		Help:      "Currently open client connections.",
	})

	r.ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connections",
		Name:      "accepted_total",
		Help:      "Client connections accepted.",
	})

	r.ConnectionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connections",
		Name:      "rejected_total",
		Help:      "Client connections refused because max_connections was reached.",
	})

	r.ProtocolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_errors_total",
		Help:      "Connections closed on a wire protocol violation, by reason.",
	}, []string{"reason"})

	r.KeysSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "swept_keys_total",
		Help:      "Expired keys removed by the background sweeper.",
	})

	r.BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information; the value is always 1.",
	}, []string{"version", "commit", "go_version"})

	r.reg.MustRegister(
		r.BuildInfo,
		r.CommandsTotal,
		r.CommandDuration,
		r.RateLimited,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.ConnectionsRejected,
		r.ProtocolErrors,
		r.KeysSwept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// SetBuildInfo publishes the running version.
func (r *Registry) SetBuildInfo(version, commit, goVersion string) {
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveCommand records one command outcome.
func (r *Registry) ObserveCommand(command, status string, elapsed time.Duration) {
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
