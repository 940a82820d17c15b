// Package poller runs a fetch on an interval with at most one fetch in
// flight. Retargeting cancels the running fetch and drops its result so a
// slow answer for an old query never overwrites a newer one.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FetchFunc produces one poll result.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller periodically calls a FetchFunc and stores results in a Cache.
type Poller[T any] struct {
	interval time.Duration
	cache    *Cache[T]
	limiter  *rate.Limiter
	onResult func(T, error)
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	fetch      FetchFunc[T]
	generation uint64
	cancel     context.CancelFunc

	wake chan struct{}
}

// Option configures a Poller.
type Option[T any] func(*Poller[T])

// WithRefreshLimit bounds how often Refresh may trigger an extra poll.
func WithRefreshLimit[T any](every time.Duration, burst int) Option[T] {
	return func(p *Poller[T]) { p.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithOnResult registers a callback run after every poll that was not
// discarded, on the polling goroutine.
func WithOnResult[T any](fn func(T, error)) Option[T] {
	return func(p *Poller[T]) { p.onResult = fn }
}

func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(p *Poller[T]) { p.logger = l }
}

// New creates a Poller. The cache belongs to the caller; the poller only
// writes to it.
func New[T any](fetch FetchFunc[T], cache *Cache[T], interval time.Duration, opts ...Option[T]) *Poller[T] {
	p := &Poller[T]{
		interval: interval,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   slog.Default(),
		now:      time.Now,
		fetch:    fetch,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.wake:
			ticker.Reset(p.interval)
		}
	}
}

// Retarget replaces the fetch function. A fetch already in flight is
// cancelled and its result discarded, and a poll with the new function is
// scheduled right away.
func (p *Poller[T]) Retarget(fetch FetchFunc[T]) {
	p.mu.Lock()
	p.fetch = fetch
	p.generation++
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.signal()
}

// Refresh asks for an immediate poll. It reports false when the request was
// rate limited.
func (p *Poller[T]) Refresh() bool {
	if !p.limiter.Allow() {
		return false
	}
	p.signal()
	return true
}

// Generation counts Retarget calls.
func (p *Poller[T]) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *Poller[T]) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	p.mu.Lock()
	gen, fetch := p.generation, p.fetch
	fctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	v, err := fetch(fctx)
	cancel()

	p.mu.Lock()
	stale := gen != p.generation
	p.cancel = nil
	p.mu.Unlock()

	if stale {
		p.logger.Debug("discarding stale poll result", slog.Uint64("generation", gen))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.cache.fail(err)
	} else {
		p.cache.store(v, p.now())
	}
	if p.onResult != nil {
		p.onResult(v, err)
	}
}
