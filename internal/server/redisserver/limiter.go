package redisserver

import (
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address. Buckets live
// while the client has at least one open connection.
type clientLimiter struct {
	mu      sync.RWMutex
	limit   int
	clients map[string]*clientBucket
}

type clientBucket struct {
	lim   *rate.Limiter
	conns int
}

// newClientLimiter creates a limiter allowing perSecond commands per
// client with an equal burst. perSecond <= 0 disables limiting.
func newClientLimiter(perSecond int) *clientLimiter {
	return &clientLimiter{
		limit:   perSecond,
		clients: make(map[string]*clientBucket),
	}
}

// Attach registers a connection from client.
func (l *clientLimiter) Attach(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{}
		if l.limit > 0 {
			b.lim = rate.NewLimiter(rate.Limit(l.limit), l.limit)
		}
		l.clients[client] = b
	}
	b.conns++
}

// Detach unregisters a connection and drops the bucket with the last one.
func (l *clientLimiter) Detach(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[client]
	if !ok {
		return
	}
	b.conns--
	if b.conns <= 0 {
		delete(l.clients, client)
	}
}

// Allow reports whether client may run one more command now.
// Clients that were never attached are not limited.
func (l *clientLimiter) Allow(client string) bool {
	l.mu.RLock()
	b, ok := l.clients[client]
	var lim *rate.Limiter
	if ok {
		lim = b.lim
	}
	l.mu.RUnlock()

	if lim == nil {
		return true
	}
	return lim.Allow()
}

// SetLimit changes the per-client rate for existing and future buckets.
// perSecond <= 0 disables limiting.
func (l *clientLimiter) SetLimit(perSecond int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = perSecond
	for _, b := range l.clients {
		switch {
		case perSecond <= 0:
			b.lim = nil
		case b.lim == nil:
			b.lim = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		default:
			b.lim.SetLimit(rate.Limit(perSecond))
			b.lim.SetBurst(perSecond)
		}
	}
}

// Limit returns the current per-client rate.
func (l *clientLimiter) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limit
}

// Len returns the number of tracked clients.
func (l *clientLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}
