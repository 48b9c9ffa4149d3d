package connection

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConnected is returned when no server has been selected.
var ErrNotConnected = errors.New("connection: not connected")

// Manager holds the current connection of an interactive session.
type Manager struct {
	opts Options

	mu     sync.Mutex
	server string
	client *Client
}

// NewManager creates a manager whose connections use opts.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Connect dials server, checks it with PING and makes it current. The
// previous connection is closed only once the new one works.
func (m *Manager) Connect(ctx context.Context, server string) error {
	client, err := Dial(ctx, server, m.opts)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}

	m.mu.Lock()
	old := m.client
	m.server, m.client = server, client
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Disconnect closes and forgets the current connection.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	client := m.client
	m.server, m.client = "", nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// Client returns the current client, redialing the current server if the
// previous connection broke.
func (m *Manager) Client(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == "" {
		return nil, ErrNotConnected
	}
	if m.client != nil && !m.client.Closed() {
		return m.client, nil
	}

	client, err := Dial(ctx, m.server, m.opts)
	if err != nil {
		return nil, err
	}
	m.client = client
	return client, nil
}

// Server returns the current server target, or "" when disconnected.
func (m *Manager) Server() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server
}

// IsConnected reports whether a server is selected.
func (m *Manager) IsConnected() bool {
	return m.Server() != ""
}
