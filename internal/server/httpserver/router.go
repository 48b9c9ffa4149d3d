package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/memkv/internal/telemetry/metric"
)

// RouterConfig holds the dependencies of the admin routes.
type RouterConfig struct {
	// Metrics serves /metrics. Nil disables the route.
	Metrics *metric.Registry

	// Stats serves /stats. Nil disables the route.
	Stats metric.StatsSource

	// Ready reports whether the server accepts RESP traffic.
	// Nil means always ready.
	Ready func() error

	Logger *slog.Logger

	// EnableAudit logs every request.
	EnableAudit bool
}

// NewRouter builds the admin handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	middlewares := []Middleware{Recover(log), RequestID()}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(log))
	}
	wrap := func(h http.Handler) http.Handler {
		return Chain(h, middlewares...)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", wrap(http.HandlerFunc(handleHealth)))
	mux.Handle("GET /ready", wrap(readyHandler(cfg.Ready)))
	if cfg.Stats != nil {
		mux.Handle("GET /stats", wrap(statsHandler(cfg.Stats)))
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", wrap(cfg.Metrics.Handler()))
	}
	return mux
}

type statusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Error  string `json:"error,omitempty"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy", Time: now()})
}

func readyHandler(ready func() error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, statusResponse{
					Status: "not_ready",
					Time:   now(),
					Error:  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "ready", Time: now()})
	})
}

type statsResponse struct {
	Keys    int    `json:"keys"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Expired uint64 `json:"expired"`
	Shards  []int  `json:"shards"`
}

func statsHandler(src metric.StatsSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := src.Stats()
		writeJSON(w, http.StatusOK, statsResponse{
			Keys:    st.Keys,
			Hits:    st.Hits,
			Misses:  st.Misses,
			Expired: st.Expired,
			Shards:  st.Shards,
		})
	})
}
