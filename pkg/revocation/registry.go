// Package revocation keeps an in-process set of revoked tokens whose entries
// expire on their own. A single reaper goroutine sweeps expired entries on a
// fixed interval; there is no timer per entry.
package revocation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is used when Options.SweepInterval is not positive.
const DefaultSweepInterval = 30 * time.Second

// EvictFunc is invoked once for every entry removed by the reaper.
type EvictFunc func(token string)

// Options configures a Registry.
type Options struct {
	SweepInterval time.Duration
	OnEvict       EvictFunc
	Logger        *zap.Logger
	Now           func() time.Time
}

// Registry is a concurrency-safe set of tokens, each with an expiry instant.
// It is process-local: entries are lost on restart and not shared between
// instances.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	interval time.Duration
	onEvict  EvictFunc
	logger   *zap.Logger
	now      func() time.Time

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewRegistry builds an empty registry. Call Start to run the reaper.
func NewRegistry(opts Options) *Registry {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		entries:  make(map[string]time.Time),
		interval: opts.SweepInterval,
		onEvict:  opts.OnEvict,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Start launches the reaper. Safe to call once; later calls are no-ops.
func (r *Registry) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.started {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.started = true
	go r.reap(ctx)
	r.logger.Sugar().Infow("revocation reaper started", "interval", r.interval)
}

// Stop halts the reaper and waits for it to exit.
func (r *Registry) Stop() {
	r.runMu.Lock()
	if !r.started {
		r.runMu.Unlock()
		return
	}
	r.cancel()
	done := r.done
	r.started = false
	r.runMu.Unlock()
	<-done
	r.logger.Sugar().Infow("revocation reaper stopped")
}

// Add records token until expiresAt. Re-adding a token replaces its expiry.
func (r *Registry) Add(token string, expiresAt time.Time) {
	if !expiresAt.After(r.now()) {
		r.Remove(token)
		return
	}
	r.mu.Lock()
	r.entries[token] = expiresAt
	r.mu.Unlock()
}

// Remove deletes token if present.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// Contains reports whether token is present and not yet expired.
func (r *Registry) Contains(token string) bool {
	r.mu.RLock()
	expiresAt, ok := r.entries[token]
	r.mu.RUnlock()
	return ok && expiresAt.After(r.now())
}

// Len returns the number of entries currently held, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes every expired entry and returns how many were evicted.
func (r *Registry) Sweep() int {
	now := r.now()
	var evicted []string

	r.mu.Lock()
	for token, expiresAt := range r.entries {
		if !expiresAt.After(now) {
			delete(r.entries, token)
			evicted = append(evicted, token)
		}
	}
	r.mu.Unlock()

	if r.onEvict != nil {
		for _, token := range evicted {
			r.onEvict(token)
		}
	}
	return len(evicted)
}

func (r *Registry) reap(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("revocation entries evicted", zap.Int("count", n))
			}
		}
	}
}
