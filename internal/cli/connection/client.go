package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/memkv/pkg/resp"
)

// DefaultPort is appended to targets given without a port.
const DefaultPort = "6379"

// DefaultTimeout bounds a dial or a single request when the context has
// no earlier deadline.
const DefaultTimeout = 5 * time.Second

var (
	// ErrClosed is returned by a client after Close or a transport failure.
	ErrClosed = errors.New("connection: client closed")

	// ErrInvalidTarget is returned for server targets that cannot be parsed.
	ErrInvalidTarget = errors.New("connection: invalid server target")
)

// Target is a parsed server address.
type Target struct {
	Network string // "tcp" or "unix"
	Address string
	TLS     bool
}

func (t Target) String() string {
	switch {
	case t.Network == "unix":
		return "unix://" + t.Address
	case t.TLS:
		return "tls://" + t.Address
	default:
		return t.Address
	}
}

// ParseTarget parses a server target.
func ParseTarget(server string) (Target, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	scheme, rest, hasScheme := strings.Cut(server, "://")
	if !hasScheme {
		if strings.ContainsRune(server, '/') {
			return Target{Network: "unix", Address: server}, nil
		}
		scheme, rest = "tcp", server
	}

	switch scheme {
	case "unix":
		if rest == "" {
			return Target{}, fmt.Errorf("%w: %q has no socket path", ErrInvalidTarget, server)
		}
		return Target{Network: "unix", Address: rest}, nil
	case "tcp", "tls":
		addr, err := withDefaultPort(rest)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, server, err)
		}
		return Target{Network: "tcp", Address: addr, TLS: scheme == "tls"}, nil
	default:
		return Target{}, fmt.Errorf("%w: unknown scheme %q", ErrInvalidTarget, scheme)
	}
}

func withDefaultPort(hostport string) (string, error) {
	if hostport == "" {
		return "", errors.New("missing host")
	}
	if _, _, err := net.SplitHostPort(hostport); err == nil {
		return hostport, nil
	}
	host := strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
	return net.JoinHostPort(host, DefaultPort), nil
}

// Options configures a Client.
type Options struct {
	// Timeout bounds dialing and each request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// TLSConfig is used for tls:// targets. Nil uses the system roots.
	TLSConfig *tls.Config

	// Limits bounds decoded replies. The zero value uses ReplyLimits.
	Limits resp.Limits
}

// ReplyLimits returns the limits applied to server replies when Options
// leaves them unset. They are looser than resp.DefaultLimits so that large
// KEYS replies still decode.
func ReplyLimits() resp.Limits {
	return resp.Limits{
		MaxBulkLen:  64 * 1024 * 1024,
		MaxArrayLen: 16 * 1024 * 1024,
		MaxDepth:    resp.MaxDepth,
		MaxLineLen:  resp.MaxLineLen,
		MaxFrameLen: 1024 * 1024 * 1024,
	}
}

func (o Options) limits() resp.Limits {
	if o.Limits == (resp.Limits{}) {
		return ReplyLimits()
	}
	return o.Limits
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// Client is a RESP connection to one server. Requests are serialized;
// a transport error closes the client.
type Client struct {
	target Target
	opts   Options

	mu     sync.Mutex
	conn   net.Conn
	bw     *bufio.Writer
	rd     *resp.Reader
	closed bool
}

// Dial connects to server.
func Dial(ctx context.Context, server string, opts Options) (*Client, error) {
	target, err := ParseTarget(server)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	var conn net.Conn
	if target.TLS {
		d := &tls.Dialer{Config: clientTLSConfig(opts.TLSConfig, target.Address)}
		conn, err = d.DialContext(ctx, target.Network, target.Address)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, target.Network, target.Address)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}

	return &Client{
		target: target,
		opts:   opts,
		conn:   conn,
		bw:     bufio.NewWriter(conn),
		rd:     resp.NewReader(conn, opts.limits()),
	}, nil
}

// clientTLSConfig fills in ServerName from the dialed address.
func clientTLSConfig(base *tls.Config, addr string) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			cfg.ServerName = host
		}
	}
	return cfg
}

// Target returns the server this client is connected to.
func (c *Client) Target() Target {
	return c.target
}

// Do sends a command built from args and returns the reply. Error
// replies are returned as messages, not errors; see ReplyErr.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Message, error) {
	if len(args) == 0 {
		return resp.Message{}, errors.New("connection: empty command")
	}
	return c.Send(ctx, resp.CommandValue(args[0], args[1:]...))
}

// Send writes msg and reads one reply.
func (c *Client) Send(ctx context.Context, msg resp.Message) (resp.Message, error) {
	replies, err := c.Pipeline(ctx, msg)
	if err != nil {
		return resp.Message{}, err
	}
	return replies[0], nil
}

// Pipeline writes every message in one flush and reads one reply per message.
func (c *Client) Pipeline(ctx context.Context, msgs ...resp.Message) ([]resp.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(c.opts.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, c.fail(err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	for _, m := range msgs {
		if _, err := c.bw.Write(resp.Encode(m)); err != nil {
			return nil, c.fail(err)
		}
	}
	if err := c.bw.Flush(); err != nil {
		return nil, c.fail(err)
	}

	replies := make([]resp.Message, 0, len(msgs))
	for range msgs {
		reply, err := c.rd.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return nil, c.fail(err)
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// Ping checks the connection with PING.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.Do(ctx, "PING")
	if err != nil {
		return err
	}
	if err := ReplyErr(reply); err != nil {
		return err
	}
	if reply.Text() != "PONG" {
		return fmt.Errorf("connection: unexpected PING reply %v", reply)
	}
	return nil
}

// Closed reports whether the client can no longer be used.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// fail closes the connection after a transport error. Must hold c.mu.
func (c *Client) fail(err error) error {
	c.closed = true
	_ = c.conn.Close()
	return fmt.Errorf("%s: %w", c.target, err)
}

// ReplyError is an error reply sent by the server.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// ReplyErr returns a *ReplyError if m is an error reply, otherwise nil.
func ReplyErr(m resp.Message) error {
	if m.Kind != resp.KindError {
		return nil
	}
	return &ReplyError{Message: m.Text()}
}
