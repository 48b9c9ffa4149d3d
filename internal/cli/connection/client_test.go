package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/memkv/internal/server/redisserver"
	"github.com/yndnr/memkv/internal/storage/memory"
	"github.com/yndnr/memkv/pkg/resp"
)

// ============================================================
// Test Helpers
// ============================================================

func startServer(t *testing.T, mutate func(*redisserver.Config)) *redisserver.Server {
	t.Helper()

	cfg := redisserver.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}
	srv := redisserver.New(cfg, memory.New(), nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func dialTest(t *testing.T, server string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), server, Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", server, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// ============================================================
// Target Tests
// ============================================================

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"localhost", Target{Network: "tcp", Address: "localhost:6379"}},
		{"localhost:7000", Target{Network: "tcp", Address: "localhost:7000"}},
		{"tcp://10.0.0.1", Target{Network: "tcp", Address: "10.0.0.1:6379"}},
		{"tls://cache.internal:6380", Target{Network: "tcp", Address: "cache.internal:6380", TLS: true}},
		{"::1", Target{Network: "tcp", Address: "[::1]:6379"}},
		{"[::1]:7000", Target{Network: "tcp", Address: "[::1]:7000"}},
		{"unix:///run/memkv.sock", Target{Network: "unix", Address: "/run/memkv.sock"}},
		{"/run/memkv.sock", Target{Network: "unix", Address: "/run/memkv.sock"}},
		{"./memkv.sock", Target{Network: "unix", Address: "./memkv.sock"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if err != nil {
				t.Fatalf("ParseTarget() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "unix://", "http://localhost", "tcp://"} {
		if _, err := ParseTarget(in); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("ParseTarget(%q) error = %v, want ErrInvalidTarget", in, err)
		}
	}
}

func TestTarget_String(t *testing.T) {
	for in, want := range map[string]string{
		"localhost":       "localhost:6379",
		"tls://h:1":       "tls://h:1",
		"/tmp/memkv.sock": "unix:///tmp/memkv.sock",
	} {
		target, err := ParseTarget(in)
		if err != nil {
			t.Fatalf("ParseTarget(%q) error = %v", in, err)
		}
		if got := target.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestClientTLSConfig(t *testing.T) {
	cfg := clientTLSConfig(nil, "cache.internal:6380")
	if cfg.ServerName != "cache.internal" || cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("default config = %+v", cfg)
	}

	base := &tls.Config{ServerName: "override"}
	if got := clientTLSConfig(base, "h:1"); got.ServerName != "override" || got == base {
		t.Errorf("explicit ServerName not kept or base not cloned")
	}
}

// ============================================================
// Client Tests
// ============================================================

func TestClient_Commands(t *testing.T) {
	srv := startServer(t, nil)
	c := dialTest(t, srv.Addrs()[0].String())
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	tests := []struct {
		args []string
		want resp.Message
	}{
		{[]string{"SET", "k", "v"}, resp.SimpleStringValue("OK")},
		{[]string{"GET", "k"}, resp.BulkStringValue("v")},
		{[]string{"EXISTS", "k"}, resp.IntegerValue(1)},
		{[]string{"DEL", "k"}, resp.SimpleStringValue("OK")},
		{[]string{"GET", "k"}, resp.NullValue()},
	}
	for _, tt := range tests {
		got, err := c.Do(ctx, tt.args...)
		if err != nil {
			t.Fatalf("Do(%v) error = %v", tt.args, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("Do(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestClient_ErrorReply(t *testing.T) {
	srv := startServer(t, nil)
	c := dialTest(t, srv.Addrs()[0].String())

	reply, err := c.Do(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("Do() transport error = %v", err)
	}
	var re *ReplyError
	if !errors.As(ReplyErr(reply), &re) || re.Message != "unknown command" {
		t.Errorf("ReplyErr() = %v, want unknown command", ReplyErr(reply))
	}
	if ReplyErr(resp.SimpleStringValue("OK")) != nil {
		t.Error("ReplyErr(OK) != nil")
	}

	if c.Closed() {
		t.Error("error reply closed the client")
	}
}

func TestClient_OversizedReply(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 512)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("$9223372036854775807\r\nabc"))
		_, _ = conn.Read(buf)
	}()

	c := dialTest(t, ln.Addr().String())
	_, err = c.Do(context.Background(), "GET", "k")
	if !errors.Is(err, resp.ErrLimitExceeded) {
		t.Errorf("Do() error = %v, want ErrLimitExceeded", err)
	}
	if !c.Closed() {
		t.Error("client still open after a malformed reply")
	}
}

func TestOptions_Limits(t *testing.T) {
	if got := (Options{}).limits(); got != ReplyLimits() {
		t.Errorf("zero Options limits = %+v, want ReplyLimits()", got)
	}
	custom := resp.Limits{MaxBulkLen: 10}
	if got := (Options{Limits: custom}).limits(); got != custom {
		t.Errorf("limits = %+v, want %+v", got, custom)
	}
}

func TestClient_Pipeline(t *testing.T) {
	srv := startServer(t, nil)
	c := dialTest(t, srv.Addrs()[0].String())

	replies, err := c.Pipeline(context.Background(),
		resp.CommandValue("SET", "a", "1"),
		resp.CommandValue("SET", "b", "2"),
		resp.CommandValue("GET", "a"),
		resp.CommandValue("GET", "b"),
	)
	if err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}
	want := []resp.Message{
		resp.SimpleStringValue("OK"),
		resp.SimpleStringValue("OK"),
		resp.BulkStringValue("1"),
		resp.BulkStringValue("2"),
	}
	for i := range want {
		if !replies[i].Equal(want[i]) {
			t.Errorf("reply %d = %v, want %v", i, replies[i], want[i])
		}
	}
}

func TestClient_UnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "memkv.sock")
	startServer(t, func(cfg *redisserver.Config) {
		cfg.Addr = ""
		cfg.UnixSocket = sock
	})

	c := dialTest(t, "unix://"+sock)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() over unix socket error = %v", err)
	}
	if c.Target().Network != "unix" {
		t.Errorf("Target() = %+v", c.Target())
	}
}

func TestClient_QuitClosesClient(t *testing.T) {
	srv := startServer(t, nil)
	c := dialTest(t, srv.Addrs()[0].String())
	ctx := context.Background()

	reply, err := c.Do(ctx, "QUIT")
	if err != nil || !reply.Equal(resp.SimpleStringValue("OK")) {
		t.Fatalf("QUIT = %v, %v", reply, err)
	}
	if _, err := c.Do(ctx, "PING"); err == nil {
		t.Fatal("PING after QUIT succeeded")
	}
	if !c.Closed() {
		t.Error("client not closed after transport error")
	}
	if _, err := c.Do(ctx, "PING"); !errors.Is(err, ErrClosed) {
		t.Errorf("Do() on closed client error = %v, want ErrClosed", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		// Accept and never answer.
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(5 * time.Second)
		}
	}()

	c := dialTest(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.Do(ctx, "PING"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Do() ignored the context deadline")
	}
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(context.Background(), addr, Options{Timeout: time.Second}); err == nil {
		t.Error("Dial() to closed port succeeded")
	}
}

// ============================================================
// Manager Tests
// ============================================================

func TestManager(t *testing.T) {
	srv := startServer(t, nil)
	addr := srv.Addrs()[0].String()
	ctx := context.Background()

	m := NewManager(Options{Timeout: 2 * time.Second})
	if m.IsConnected() {
		t.Fatal("new manager is connected")
	}
	if _, err := m.Client(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Client() error = %v, want ErrNotConnected", err)
	}

	if err := m.Connect(ctx, addr); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if m.Server() != addr {
		t.Errorf("Server() = %q, want %q", m.Server(), addr)
	}

	c, err := m.Client(ctx)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}

	// A broken connection is redialed on the next use.
	_ = c.Close()
	again, err := m.Client(ctx)
	if err != nil {
		t.Fatalf("Client() after close error = %v", err)
	}
	if again == c {
		t.Error("Client() returned the closed client")
	}
	if err := again.Ping(ctx); err != nil {
		t.Errorf("Ping() on redialed client error = %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if m.IsConnected() {
		t.Error("connected after Disconnect")
	}
}

func TestManager_ConnectFailureKeepsCurrent(t *testing.T) {
	srv := startServer(t, nil)
	addr := srv.Addrs()[0].String()
	ctx := context.Background()

	m := NewManager(Options{Timeout: time.Second})
	if err := m.Connect(ctx, addr); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := m.Connect(ctx, "unix:///nonexistent/memkv.sock"); err == nil {
		t.Fatal("Connect() to missing socket succeeded")
	}
	if m.Server() != addr {
		t.Errorf("Server() = %q after failed connect, want %q", m.Server(), addr)
	}
}
