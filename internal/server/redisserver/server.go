package redisserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/memkv/internal/storage/memory"
	"github.com/yndnr/memkv/internal/telemetry/logger"
	"github.com/yndnr/memkv/internal/telemetry/metric"
	"github.com/yndnr/memkv/pkg/idgen"
	"github.com/yndnr/memkv/pkg/resp"
)

// Default connection timeouts.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
)

// Replies written by the connection loop itself.
const (
	errProtocol      = "ERR protocol error"
	errLimitExceeded = "ERR protocol limit exceeded"
	errMaxClients    = "ERR max number of clients reached"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the plaintext TCP address. Empty disables the TCP listener.
	Addr string
	// TLSAddr is the TLS address. Empty disables the TLS listener.
	TLSAddr string
	// TLSConfig is required when TLSAddr is set.
	TLSConfig *tls.Config
	// UnixSocket is a Unix domain socket path. Empty disables it.
	UnixSocket string

	// ReadTimeout bounds reading the rest of a request once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds flushing replies.
	WriteTimeout time.Duration
	// IdleTimeout bounds the wait for the next request.
	IdleTimeout time.Duration

	// MaxConnections caps concurrent clients. 0 means unlimited.
	MaxConnections int
	// RateLimit is the per-client-IP commands per second. 0 disables it.
	RateLimit int

	// Limits bounds accepted request frames.
	Limits resp.Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:6379",
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
		Limits:       resp.DefaultLimits(),
	}
}

// Server is the RESP server.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	metrics *metric.Registry
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[*conn]struct{}

	running atomic.Bool
	active  atomic.Int64
	wg      sync.WaitGroup
}

// New creates a server over store. metrics may be nil.
func New(cfg *Config, store *memory.Store, metrics *metric.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "redisserver")

	return &Server{
		cfg:     cfg,
		handler: NewCommandHandler(store, metrics, cfg.RateLimit, logger),
		metrics: metrics,
		logger:  logger,
		conns:   make(map[*conn]struct{}),
	}
}

// Handler returns the command handler, e.g. to adjust the rate limit.
func (s *Server) Handler() *CommandHandler {
	return s.handler
}

// Start binds every configured listener and starts accepting connections.
// Bind failures are returned; nothing is left listening in that case.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Addr == "" && s.cfg.TLSAddr == "" && s.cfg.UnixSocket == "" {
		return errors.New("redisserver: no listener configured")
	}

	var lns []net.Listener
	closeAll := func() {
		for _, ln := range lns {
			_ = ln.Close()
		}
	}

	if s.cfg.Addr != "" {
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		lns = append(lns, ln)
	}

	if s.cfg.TLSAddr != "" {
		if s.cfg.TLSConfig == nil {
			closeAll()
			return errors.New("redisserver: TLS config is required for the TLS listener")
		}
		ln, err := tls.Listen("tcp", s.cfg.TLSAddr, s.cfg.TLSConfig)
		if err != nil {
			closeAll()
			return fmt.Errorf("listen tls %s: %w", s.cfg.TLSAddr, err)
		}
		lns = append(lns, ln)
	}

	if s.cfg.UnixSocket != "" {
		// A stale socket file from a previous run would make bind fail.
		if err := os.Remove(s.cfg.UnixSocket); err != nil && !errors.Is(err, os.ErrNotExist) {
			closeAll()
			return fmt.Errorf("remove stale socket: %w", err)
		}
		ln, err := net.Listen("unix", s.cfg.UnixSocket)
		if err != nil {
			closeAll()
			return fmt.Errorf("listen unix %s: %w", s.cfg.UnixSocket, err)
		}
		lns = append(lns, ln)
	}

	s.mu.Lock()
	s.listeners = lns
	s.mu.Unlock()
	s.running.Store(true)

	for _, ln := range lns {
		s.logger.Info("redis server listening",
			"network", ln.Addr().Network(),
			"address", ln.Addr().String(),
		)
		s.wg.Add(1)
		go func(ln net.Listener) {
			defer s.wg.Done()
			if err := s.acceptLoop(ctx, ln); err != nil {
				s.logger.Error("accept loop stopped", "address", ln.Addr().String(), "error", err)
			}
		}(ln)
	}
	return nil
}

// Addrs returns the bound listener addresses in the order TCP, TLS, Unix.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, len(s.listeners))
	for i, ln := range s.listeners {
		addrs[i] = ln.Addr()
	}
	return addrs
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// Shutdown stops accepting, lets in-flight commands finish and closes idle
// connections. If ctx expires first, remaining connections are closed
// forcibly and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	var firstErr error
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) && firstErr == nil {
			firstErr = err
		}
	}
	// Wake connections blocked waiting for their next request.
	for c := range s.conns {
		_ = c.netConn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.netConn.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}

	if s.cfg.UnixSocket != "" {
		_ = os.Remove(s.cfg.UnixSocket)
	}
	s.logger.Info("redis server stopped")
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return err
		}

		if limit := s.cfg.MaxConnections; limit > 0 && s.active.Load() >= int64(limit) {
			s.reject(nc)
			continue
		}

		c := s.newConn(nc)
		if !s.track(c) {
			_ = nc.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(ctx, c)
		}()
	}
}

// reject refuses a connection over the MaxConnections cap.
func (s *Server) reject(nc net.Conn) {
	if s.metrics != nil {
		s.metrics.ConnectionsRejected.Inc()
	}
	s.logger.Warn("connection rejected: max connections reached",
		"remote", nc.RemoteAddr().String(),
		"max_connections", s.cfg.MaxConnections,
	)
	_ = nc.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
	_ = resp.Write(nc, resp.ErrorValue(errMaxClients))
	_ = nc.Close()
}

// track registers c unless the server is shutting down.
func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.active.Add(1)
	s.handler.limiter.Attach(c.client)
	if s.metrics != nil {
		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()
	}
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()

	s.active.Add(-1)
	s.handler.limiter.Detach(c.client)
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Dec()
	}
}

func (s *Server) serveConn(ctx context.Context, c *conn) {
	ctx = logger.WithConnID(ctx, c.id)
	log := s.logger.With("conn_id", c.id, "remote", c.remote)
	log.Debug("connection opened")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic serving connection", "panic", r, "stack", string(debug.Stack()))
		}
		_ = c.Close()
		log.Debug("connection closed")
	}()

	for {
		// The deadline must be armed before checking running, so that
		// Shutdown's immediate deadline always wins.
		c.beginRequest()
		if !s.running.Load() {
			c.flush()
			return
		}

		req, err := c.rd.ReadMessage()
		if err != nil {
			s.handleReadError(log, c, err)
			return
		}

		reply := s.handler.Handle(ctx, c.client, req)
		if err := c.write(reply); err != nil {
			log.Debug("write failed", "error", err)
			return
		}

		if isQuit(req) {
			c.flush()
			return
		}
	}
}

func (s *Server) handleReadError(log *slog.Logger, c *conn, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		c.flush()
	case errors.Is(err, resp.ErrLimitExceeded):
		log.Warn("protocol limit exceeded", "error", err)
		s.countProtocolError("limit")
		_ = c.write(resp.ErrorValue(errLimitExceeded))
		c.flush()
	case errors.Is(err, resp.ErrProtocol):
		log.Debug("protocol error", "error", err)
		s.countProtocolError("malformed")
		_ = c.write(resp.ErrorValue(errProtocol))
		c.flush()
	case errors.As(err, &netErr) && netErr.Timeout():
		if s.running.Load() {
			log.Debug("connection timed out")
		}
		c.flush()
	case errors.Is(err, io.ErrUnexpectedEOF):
		log.Debug("connection closed mid-request")
	default:
		log.Debug("connection read error", "error", err)
	}
}

func (s *Server) countProtocolError(reason string) {
	if s.metrics != nil {
		s.metrics.ProtocolErrors.WithLabelValues(reason).Inc()
	}
}

func (s *Server) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout > 0 {
		return s.cfg.WriteTimeout
	}
	return DefaultWriteTimeout
}

// ============================================================
// Connection
// ============================================================

// conn is one client connection. Replies are buffered and flushed just
// before the next blocking read, so a pipelined batch is answered with
// as few writes as possible.
type conn struct {
	id      string
	netConn net.Conn
	remote  string
	client  string

	rd *resp.Reader
	bw *bufio.Writer

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	// inRequest is false until the first byte of a request has been read.
	inRequest bool
	closed    atomic.Bool
}

func (s *Server) newConn(nc net.Conn) *conn {
	c := &conn{
		id:           idgen.New(idgen.PrefixConn),
		netConn:      nc,
		remote:       nc.RemoteAddr().String(),
		client:       clientIP(nc.RemoteAddr()),
		bw:           bufio.NewWriter(nc),
		readTimeout:  orDefault(s.cfg.ReadTimeout, DefaultReadTimeout),
		writeTimeout: orDefault(s.cfg.WriteTimeout, DefaultWriteTimeout),
		idleTimeout:  orDefault(s.cfg.IdleTimeout, DefaultIdleTimeout),
	}
	c.rd = resp.NewReader(c, s.cfg.Limits)
	return c
}

// beginRequest arms the deadline for the next request. Clients may sit
// idle between requests, but once a request has started it must arrive
// within the read timeout.
func (c *conn) beginRequest() {
	if c.rd.Buffered() > 0 {
		c.inRequest = true
		_ = c.netConn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return
	}
	c.inRequest = false
	_ = c.netConn.SetReadDeadline(time.Now().Add(c.idleTimeout))
}

// Read feeds the resp.Reader. Pending replies are flushed before blocking.
func (c *conn) Read(p []byte) (int, error) {
	if c.bw.Buffered() > 0 {
		if err := c.flushErr(); err != nil {
			return 0, err
		}
	}
	if c.inRequest {
		_ = c.netConn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	n, err := c.netConn.Read(p)
	if n > 0 {
		c.inRequest = true
	}
	return n, err
}

// write buffers a reply. The write deadline is armed first because a full
// buffer flushes on its own.
func (c *conn) write(m resp.Message) error {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	_, err := c.bw.Write(resp.Encode(m))
	return err
}

func (c *conn) flushErr() error {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.bw.Flush()
}

// flush writes pending replies, ignoring errors; used on the way out.
func (c *conn) flush() {
	if c.bw.Buffered() > 0 {
		_ = c.flushErr()
	}
}

func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// clientIP returns the host part of addr, or the full address for
// transports without ports such as Unix sockets.
func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
