// Package rotation spreads inference calls across redundant providers and
// quarantines the ones that keep failing. Recovery is guaranteed: error
// counts decay on success and on a periodic background tick, so no
// provider stays locked out forever.
package rotation

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// quarantineThreshold is the consecutive-failure count at which a
	// provider is marked unavailable.
	quarantineThreshold = 3

	// successCredit is subtracted from a provider's recent error count on
	// each successful call, floored at zero.
	successCredit = 0.5

	// cooldown is the minimum spacing between two uses of one provider.
	cooldown = time.Second

	// DefaultDecayInterval is how often the background tick decrements
	// every provider's recent error count.
	DefaultDecayInterval = 60 * time.Second
)

// Stats tracks the rolling health of a single provider.
type Stats struct {
	ID           string    `json:"id"`
	Requests     int       `json:"requests"`
	LastUsed     time.Time `json:"last_used"`
	RecentErrors float64   `json:"recent_errors"`
	Available    bool      `json:"available"`
}

// Rotator chooses the next provider to try from a fixed ordered list.
type Rotator struct {
	mu    sync.Mutex
	ids   []string
	stats map[string]*Stats
	last  int
	clock clockwork.Clock

	decayInterval time.Duration
	stopOnce      sync.Once
	started       bool
	stop          chan struct{}
	done          chan struct{}
}

// Option is a functional option for configuring a Rotator.
type Option func(*Rotator)

// WithClock overrides the wall clock for deterministic tests.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Rotator) {
		r.clock = clock
	}
}

// WithDecayInterval overrides the background decay cadence.
func WithDecayInterval(interval time.Duration) Option {
	return func(r *Rotator) {
		if interval > 0 {
			r.decayInterval = interval
		}
	}
}

// New creates a Rotator over the given ordered provider ids.
func New(ids []string, opts ...Option) *Rotator {
	r := &Rotator{
		ids:           append([]string(nil), ids...),
		stats:         make(map[string]*Stats, len(ids)),
		last:          -1,
		clock:         clockwork.NewRealClock(),
		decayInterval: DefaultDecayInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, id := range r.ids {
		r.stats[id] = &Stats{ID: id, Available: true}
	}

	return r
}

// Next returns the id of the provider to try, or the empty string when
// the rotation is empty. It scans from just after the last returned
// index, skipping providers that are unavailable or were used within
// the cooldown window. If no provider qualifies it returns the one with
// the fewest recent errors; it never refuses.
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ids) == 0 {
		return ""
	}

	now := r.clock.Now()

	for offset := 1; offset <= len(r.ids); offset++ {
		idx := (r.last + offset) % len(r.ids)
		s := r.stats[r.ids[idx]]

		if !s.Available {
			continue
		}
		if !s.LastUsed.IsZero() && now.Sub(s.LastUsed) < cooldown {
			continue
		}

		r.last = idx
		s.Requests++
		s.LastUsed = now
		return s.ID
	}

	// Nothing qualifies. Fall back to the least-broken provider rather
	// than refusing: the caller's retry machinery handles a bad pick.
	best := r.stats[r.ids[0]]
	bestIdx := 0
	for i, id := range r.ids {
		if s := r.stats[id]; s.RecentErrors < best.RecentErrors {
			best = s
			bestIdx = i
		}
	}

	r.last = bestIdx
	best.Requests++
	best.LastUsed = now
	return best.ID
}

// RecordResult updates a provider's stats after a call. Failures push a
// provider toward quarantine; successes pay the error count back down and
// restore availability once it reaches zero.
func (r *Rotator) RecordResult(id string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[id]
	if !ok {
		return
	}

	if success {
		s.RecentErrors -= successCredit
		if s.RecentErrors <= 0 {
			s.RecentErrors = 0
			s.Available = true
		}
		return
	}

	s.RecentErrors++
	if s.RecentErrors >= quarantineThreshold {
		s.Available = false
	}
}

// Snapshot returns a copy of every provider's stats, in rotation order.
func (r *Rotator) Snapshot() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Stats, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, *r.stats[id])
	}
	return out
}

// Start launches the background decay loop. Every tick decrements each
// provider's recent error count by one (floored at zero) and restores
// availability once the count reaches zero.
func (r *Rotator) Start(ctx context.Context) {
	r.started = true
	go func() {
		defer close(r.done)
		ticker := r.clock.NewTicker(r.decayInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.Chan():
				r.Decay()
			}
		}
	}()
}

// Stop terminates the decay loop and waits for it to exit.
func (r *Rotator) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if r.started {
			<-r.done
		}
	})
}

// Decay applies one global decay step to every provider.
func (r *Rotator) Decay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stats {
		s.RecentErrors--
		if s.RecentErrors <= 0 {
			s.RecentErrors = 0
			s.Available = true
		}
	}
}
