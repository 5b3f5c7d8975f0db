// Package cache provides an in-memory key/value store with per-entry
// absolute expiry. It memoizes expensive inference results so repeated
// analysis of identical content never pays for a second provider call.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultSweepInterval is how often the background sweep removes expired
// entries, independent of read traffic.
const DefaultSweepInterval = 60 * time.Second

// entry is the internal storage structure for a cached value.
type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL cache with lazy eviction on read and a periodic sweep.
// Multiple instances with different default TTLs back different call
// sites; they share nothing.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	clock      clockwork.Clock

	sweepInterval time.Duration
	stopOnce      sync.Once
	started       bool
	stop          chan struct{}
	done          chan struct{}
}

// Option is a functional option for configuring a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock, allowing tests to advance a fake
// clock deterministically.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithSweepInterval overrides the background sweep cadence.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Cache) {
		if interval > 0 {
			c.sweepInterval = interval
		}
	}
}

// New creates a Cache whose entries default to the given TTL when Set is
// called without an explicit one.
func New(defaultTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]entry),
		defaultTTL:    defaultTTL,
		clock:         clockwork.NewRealClock(),
		sweepInterval: DefaultSweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Set stores a value under key. If no TTL is given the instance default
// applies. Expiry is absolute: clock.Now() + ttl.
func (c *Cache) Set(key string, value any, ttl ...time.Duration) {
	effective := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		effective = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.clock.Now().Add(effective),
	}
}

// Get retrieves a value by key. An expired entry is evicted and reported
// as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

// Has reports whether a live entry exists for key.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes an entry. Returns true if the entry existed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Start launches the background sweep loop. The loop runs until Stop is
// called or ctx is cancelled.
func (c *Cache) Start(ctx context.Context) {
	c.started = true
	go func() {
		defer close(c.done)
		ticker := c.clock.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.Chan():
				c.sweep()
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.started {
			<-c.done
		}
	})
}

// sweep removes every expired entry so memory stays bounded even when
// keys are never read again.
func (c *Cache) sweep() {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
