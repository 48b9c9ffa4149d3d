package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically removes expired entries from a Store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	onSweep func(removed int)
}

// NewSweeper creates a sweeper. An interval of zero or less disables it.
func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// OnSweep registers a callback invoked after every pass with the number of
// entries removed. It must be called before Start.
func (s *Sweeper) OnSweep(fn func(removed int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSweep = fn
}

// Start launches the background loop. It is a no-op if the sweeper is
// disabled or already running. The loop exits when ctx is cancelled or
// Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 || s.done != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done, s.onSweep)

	s.logger.Debug("expiry sweeper started", "interval", s.interval)
}

// Stop stops the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}, onSweep func(int)) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.store.DeleteExpired()
			if removed > 0 {
				s.logger.Debug("expired keys swept", "removed", removed)
			}
			if onSweep != nil {
				onSweep(removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
