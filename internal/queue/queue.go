// Package queue throttles arbitrary asynchronous operations against
// per-second and per-minute budgets. Work is never dropped: when a budget
// is exhausted the consumer loop pauses and reconsiders the head of the
// queue, and provider-throttling failures are re-queued at the front with
// exponential backoff instead of being surfaced immediately.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// Operation is one unit of throttled work.
type Operation func(ctx context.Context) (any, error)

// Config controls queue budgets and throttling-retry behavior.
type Config struct {
	// MaxPerSecond is the operation budget for each rolling second.
	MaxPerSecond int

	// MaxPerMinute is the operation budget for each rolling minute.
	MaxPerMinute int

	// MaxRetries bounds re-queues of a single item after throttling
	// errors. Exceeding it rejects the item with a QUEUE_RETRIES_EXHAUSTED
	// error wrapping the original.
	MaxRetries int

	// InitialDelay seeds the exponential backoff applied before a
	// throttled item is retried.
	InitialDelay time.Duration

	// Multiplier is the backoff growth factor.
	Multiplier float64

	// Throttled reports whether an error is a provider-throttling error
	// eligible for queue-level retry. Non-throttling errors are the
	// caller's responsibility. When nil a typed-code default is used.
	Throttled func(error) bool
}

// DefaultConfig returns the budgets used by the inference call sites.
func DefaultConfig() Config {
	return Config{
		MaxPerSecond: 2,
		MaxPerMinute: 60,
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2,
	}
}

type outcome struct {
	value any
	err   error
}

// item wraps an operation with its own throttling-retry counter,
// independent of any caller-level retry policy.
type item struct {
	ctx      context.Context
	op       Operation
	attempts int
	result   chan outcome
}

// Queue is a rate-limited execution queue processed by one consumer loop.
// Operations are dequeued one at a time; concurrency lives in the callers
// blocked on Execute, not in parallel dequeues.
type Queue struct {
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger

	mu           sync.Mutex
	items        []*item
	secondCount  int
	minuteCount  int

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// Option is a functional option for configuring a Queue.
type Option func(*Queue)

// WithClock overrides the wall clock for deterministic tests.
func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithLogger configures structured logging for queue decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// New creates a Queue with the given configuration. Call Start before
// Execute; Execute on an un-started queue blocks until Start.
func New(cfg Config, opts ...Option) *Queue {
	if cfg.MaxPerSecond <= 0 {
		cfg.MaxPerSecond = 1
	}
	if cfg.MaxPerMinute <= 0 {
		cfg.MaxPerMinute = cfg.MaxPerSecond * 60
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.Throttled == nil {
		cfg.Throttled = isThrottlingError
	}

	q := &Queue{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Execute enqueues op and blocks until it has run within budget. The
// returned error is the operation's own error, a QUEUE_RETRIES_EXHAUSTED
// error wrapping the throttling failure once retries are exhausted, or
// ctx.Err() if the caller gives up.
func (q *Queue) Execute(ctx context.Context, op Operation) (any, error) {
	it := &item{
		ctx:    ctx,
		op:     op,
		result: make(chan outcome, 1),
	}

	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()

	q.signal()

	select {
	case out := <-it.result:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Depth returns the number of queued items not yet completed.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear rejects every queued item and empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	cleared := q.items
	q.items = nil
	q.mu.Unlock()

	for _, it := range cleared {
		it.result <- outcome{err: types.NewError(types.QUEUE_STOPPED, "queue cleared")}
	}
}

// Start launches the consumer loop. The loop runs until Stop is called or
// ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.started = true
	go q.loop(ctx)
}

// Stop terminates the consumer loop, rejects pending items, and waits for
// the loop to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
		if q.started {
			<-q.done
		}
		q.Clear()
	})
}

// loop is the single cooperative consumer. Budget counters are reset by
// periodic ticks; pauses consume ticks so a sleeping loop still observes
// window resets.
func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)

	secTicker := q.clock.NewTicker(time.Second)
	defer secTicker.Stop()
	minTicker := q.clock.NewTicker(time.Minute)
	defer minTicker.Stop()

	for {
		if q.Depth() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			case <-secTicker.Chan():
				q.resetSecond()
			case <-minTicker.Chan():
				q.resetMinute()
			case <-q.wake:
			}
			continue
		}

		if q.overSecondBudget() {
			if !q.sleep(ctx, time.Second, secTicker, minTicker) {
				return
			}
			continue
		}
		if q.overMinuteBudget() {
			if !q.sleep(ctx, 5*time.Second, secTicker, minTicker) {
				return
			}
			continue
		}

		it := q.popFront()
		if it == nil {
			continue
		}

		if err := it.ctx.Err(); err != nil {
			it.result <- outcome{err: err}
			continue
		}

		q.mu.Lock()
		q.secondCount++
		q.minuteCount++
		q.mu.Unlock()

		value, err := it.op(it.ctx)

		switch {
		case err == nil:
			it.result <- outcome{value: value}

		case q.cfg.Throttled(err):
			it.attempts++
			if it.attempts > q.cfg.MaxRetries {
				q.logger.WarnContext(ctx, "throttling retries exhausted",
					"attempts", it.attempts-1,
					"error", err,
				)
				it.result <- outcome{err: types.WrapError(types.QUEUE_RETRIES_EXHAUSTED,
					"throttling retries exhausted", err)}
				break
			}

			delay := q.backoffDelay(it.attempts)
			q.logger.InfoContext(ctx, "provider throttled, re-queuing at front",
				"attempt", it.attempts,
				"max_retries", q.cfg.MaxRetries,
				"delay", delay,
			)
			q.pushFront(it)
			if !q.sleep(ctx, delay, secTicker, minTicker) {
				return
			}
			continue

		default:
			// Non-throttling failures are the caller's retry problem.
			it.result <- outcome{err: err}
		}

		// Spread completions evenly across the second budget.
		if !q.sleep(ctx, time.Second/time.Duration(q.cfg.MaxPerSecond), secTicker, minTicker) {
			return
		}
	}
}

// sleep waits for d while still consuming budget-reset ticks. Returns
// false when the loop should exit.
func (q *Queue) sleep(ctx context.Context, d time.Duration, sec, min clockwork.Ticker) bool {
	timer := q.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-q.stop:
			return false
		case <-sec.Chan():
			q.resetSecond()
		case <-min.Chan():
			q.resetMinute()
		case <-timer:
			return true
		}
	}
}

// backoffDelay computes initialDelay * multiplier^(attempt-1).
func (q *Queue) backoffDelay(attempt int) time.Duration {
	return time.Duration(float64(q.cfg.InitialDelay) * math.Pow(q.cfg.Multiplier, float64(attempt-1)))
}

func (q *Queue) popFront() *item {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it
}

func (q *Queue) pushFront(it *item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]*item{it}, q.items...)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) overSecondBudget() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.secondCount >= q.cfg.MaxPerSecond
}

func (q *Queue) overMinuteBudget() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.minuteCount >= q.cfg.MaxPerMinute
}

func (q *Queue) resetSecond() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.secondCount = 0
}

func (q *Queue) resetMinute() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.minuteCount = 0
}

// isThrottlingError is the default throttling predicate: a typed
// rate-limit error carried as a retryable PulseError whose code names
// rate limiting. Call sites with their own typed errors inject a
// predicate via Config.Throttled instead.
func isThrottlingError(err error) bool {
	var pulseErr *types.PulseError
	if !errors.As(err, &pulseErr) {
		return false
	}
	return pulseErr.Retryable && strings.HasSuffix(string(pulseErr.Code), "RATE_LIMITED")
}
