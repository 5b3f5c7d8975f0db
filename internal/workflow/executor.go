package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brandpulse-ai/brandpulse/internal/connector"
	"github.com/brandpulse-ai/brandpulse/internal/sentiment"
	"github.com/brandpulse-ai/brandpulse/internal/store"
	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// interPhasePause is the fixed back-pressure buffer between gathering
// phases, giving downstream rate budgets room to recover.
const interPhasePause = 2 * time.Second

// reportsCollection is where finished run reports are persisted.
const reportsCollection = "reports"

// Orchestrator drives a brand run through its phases: primary source
// fan-out, secondary sources, related-entity gathering, sentiment
// analysis, persistence, and summary. Source tasks are isolated: a
// source that exhausts its retries writes an error slot and the run
// carries on.
type Orchestrator struct {
	connectors  *connector.Registry
	analyzer    *sentiment.Analyzer
	store       store.DocumentStore
	policy      RetryPolicy
	logger      *slog.Logger
	tracer      trace.Tracer
	clock       clockwork.Clock
	maxParallel int

	mu      sync.Mutex
	current *Run
	cancel  context.CancelFunc
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the orchestrator to use the specified
// structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTracer configures the orchestrator to emit OpenTelemetry spans
// around runs and phases.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithMaxParallel limits how many gathering tasks run concurrently
// inside one phase.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithClock substitutes the clock used for pauses and retry backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithRetryPolicy overrides the per-task retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithStore attaches a document store; without one, persistence is
// skipped. Store failures are logged and never fail a run.
func WithStore(s store.DocumentStore) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// NewOrchestrator creates an Orchestrator over the given connectors and
// analyzer. Defaults: slog.Default(), no tracer, real clock, standard
// retry policy, maxParallel 10.
func NewOrchestrator(connectors *connector.Registry, analyzer *sentiment.Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		connectors:  connectors,
		analyzer:    analyzer,
		policy:      DefaultRetryPolicy(),
		logger:      slog.Default(),
		clock:       clockwork.NewRealClock(),
		maxParallel: 10,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is the output of a completed run.
type Result struct {
	Run     *Run
	Report  *sentiment.Report
	Summary string
}

// Status reports the current run's state and slot count, or pending
// when no run has started.
func (o *Orchestrator) Status() (RunStatus, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return RunStatusPending, 0
	}
	return o.current.Status, len(o.current.SlotNames())
}

// Cancel stops the in-flight run, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Run executes one brand run to completion. The returned error is
// non-nil only for invalid input or cancellation: source and provider
// failures degrade the report instead.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := newRun(input.Subject, o.clock.Now())
	run.Status = RunStatusRunning

	o.mu.Lock()
	o.current = run
	o.cancel = cancel
	o.mu.Unlock()

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "run.execute",
			trace.WithAttributes(
				attribute.String("run.id", run.ID.String()),
				attribute.String("run.subject", run.Subject),
			),
		)
		defer span.End()
	}

	o.logger.InfoContext(ctx, "starting brand run",
		"run_id", run.ID,
		"subject", input.Subject,
		"primary_sources", len(input.PrimarySources),
		"secondary_sources", len(input.SecondarySources),
	)

	result, err := o.execute(ctx, run, input)
	now := o.clock.Now()
	run.CompletedAt = &now

	switch {
	case err != nil && ctx.Err() != nil:
		run.Status = RunStatusCancelled
	case err != nil:
		run.Status = RunStatusFailed
	default:
		run.Status = RunStatusSucceeded
	}

	o.logger.InfoContext(ctx, "brand run finished",
		"run_id", run.ID,
		"status", run.Status,
		"slots", len(run.SlotNames()),
	)
	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, input Input) (*Result, error) {
	// Phase 1: primary sources.
	tasks := o.sourceTasks(input, "source", input.PrimarySources, input.Subject)
	if err := o.runPhase(ctx, run, "primary", tasks); err != nil {
		return nil, err
	}

	// Phase 2: secondary sources, after a fixed breather.
	if len(input.SecondarySources) > 0 {
		if err := o.pause(ctx, interPhasePause); err != nil {
			return nil, o.cancelled(err)
		}
		tasks = o.sourceTasks(input, "secondary", input.SecondarySources, input.Subject)
		if err := o.runPhase(ctx, run, "secondary", tasks); err != nil {
			return nil, err
		}
	}

	// Phase 3: related entities, each through the primary sources.
	entityTasks := make([]task, 0, len(input.Founders)+len(input.Competitors))
	for _, founder := range input.Founders {
		entityTasks = append(entityTasks, o.entityTask(input, "founder", founder))
	}
	for _, competitor := range input.Competitors {
		entityTasks = append(entityTasks, o.entityTask(input, "competitor", competitor))
	}
	if len(entityTasks) > 0 {
		if err := o.pause(ctx, interPhasePause); err != nil {
			return nil, o.cancelled(err)
		}
		if err := o.runPhase(ctx, run, "entities", entityTasks); err != nil {
			return nil, err
		}
	}

	// Phase 4: sentiment over everything gathered.
	report, err := o.analyze(ctx, run, input)
	if err != nil {
		return nil, err
	}
	run.markPhase("sentiment")

	// Phase 5: persistence, logged-only on failure.
	o.persist(ctx, run, report)
	run.markPhase("persist")

	// Phase 6: pure summary over the final slot snapshot.
	summary := Summarize(run, report)
	run.markPhase("summary")

	return &Result{Run: run, Report: report, Summary: summary}, nil
}

// task is one gathering unit: it owns a slot and produces its value.
type task struct {
	name string
	op   func(ctx context.Context) (string, error)
}

func (o *Orchestrator) sourceTasks(input Input, prefix string, sources []string, query string) []task {
	tasks := make([]task, 0, len(sources))
	for _, source := range sources {
		source := source
		tasks = append(tasks, task{
			name: fmt.Sprintf("%s:%s", prefix, source),
			op: func(ctx context.Context) (string, error) {
				return o.fetch(ctx, source, query, input.Limit)
			},
		})
	}
	return tasks
}

// entityTask gathers one related entity through every primary source,
// concatenating whatever succeeds. It fails only when no source
// produced anything.
func (o *Orchestrator) entityTask(input Input, kind, entity string) task {
	return task{
		name: fmt.Sprintf("%s:%s", kind, entity),
		op: func(ctx context.Context) (string, error) {
			var parts []string
			var lastErr error
			for _, source := range input.PrimarySources {
				text, err := o.fetch(ctx, source, entity, input.Limit)
				if err != nil {
					lastErr = err
					continue
				}
				parts = append(parts, text)
			}
			if len(parts) == 0 {
				if lastErr == nil {
					lastErr = types.NewError(types.CONNECTOR_FETCH_FAILED, "no source returned data")
				}
				return "", lastErr
			}
			return joinNonEmpty(parts), nil
		},
	}
}

func (o *Orchestrator) fetch(ctx context.Context, source, query string, limit int) (string, error) {
	c, err := o.connectors.Get(source)
	if err != nil {
		return "", err
	}
	return c.Fetch(ctx, query, limit, connector.FetchOptions{})
}

// runPhase fans the tasks out with bounded parallelism and joins before
// returning. Every task writes its slot exactly once, data or error.
func (o *Orchestrator) runPhase(ctx context.Context, run *Run, phase string, tasks []task) error {
	if err := ctx.Err(); err != nil {
		return o.cancelled(err)
	}

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "run.phase",
			trace.WithAttributes(
				attribute.String("phase", phase),
				attribute.Int("tasks", len(tasks)),
			),
		)
		defer span.End()
	}

	o.logger.InfoContext(ctx, "starting phase", "phase", phase, "tasks", len(tasks))

	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup

	for _, t := range tasks {
		t := t
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			run.setSlot(t.name, o.runTask(ctx, t))
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return o.cancelled(err)
	}
	run.markPhase(phase)
	return nil
}

// runTask executes one task under the retry policy. The terminal
// outcome always lands in the returned slot: retries exhausted means an
// error slot, never a failed run.
func (o *Orchestrator) runTask(ctx context.Context, t task) SlotValue {
	maxAttempts := o.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error

	o.logger.DebugContext(ctx, "task scheduled",
		"task", t.name,
		"state", TaskStateScheduled,
		"max_attempts", maxAttempts,
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		o.logger.DebugContext(ctx, "task attempt", "task", t.name, "state", TaskStateExecuting, "attempt", attempt)
		value, err := t.op(ctx)
		if err == nil {
			o.logger.DebugContext(ctx, "task succeeded", "task", t.name, "state", TaskStateSucceeded, "attempt", attempt)
			return SlotValue{Value: value}
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := o.policy.Delay(attempt)
		o.logger.WarnContext(ctx, "task failed, retrying",
			"task", t.name,
			"state", TaskStateRetrying,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := o.pause(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	o.logger.WarnContext(ctx, "task exhausted retries", "task", t.name, "state", TaskStateFailed, "error", lastErr)
	exhausted := types.WrapError(types.WORKFLOW_TASK_EXHAUSTED, "task "+t.name+" exhausted retries", lastErr)
	return SlotValue{Err: exhausted.Error()}
}

func (o *Orchestrator) analyze(ctx context.Context, run *Run, input Input) (*sentiment.Report, error) {
	texts := run.CollectedText("")
	o.logger.InfoContext(ctx, "starting sentiment phase", "texts", len(texts))

	report, err := o.analyzer.Analyze(ctx, sentiment.TextsToItems(texts), sentiment.Options{
		DeepAnalysis: input.DeepAnalysis,
	})
	if err != nil {
		return nil, o.cancelled(err)
	}
	return report, nil
}

// persist saves the run outcome as a task under the same retry policy
// as gathering work. A terminal store failure is logged, never
// propagated: losing the archive copy must not lose the report.
func (o *Orchestrator) persist(ctx context.Context, run *Run, report *sentiment.Report) {
	if o.store == nil {
		return
	}

	record := store.Record{
		"run_id":       run.ID.String(),
		"subject":      run.Subject,
		"created_at":   run.CreatedAt,
		"slots":        run.Slots(),
		"distribution": report.Summary.Distribution,
		"dominant":     string(report.Summary.Dominant),
		"mean_score":   report.Summary.MeanScore,
		"items":        len(report.Items),
	}
	out := o.runTask(ctx, task{
		name: "persist:" + reportsCollection,
		op: func(ctx context.Context) (string, error) {
			return "", o.store.Save(ctx, reportsCollection, record)
		},
	})
	if out.Failed() {
		o.logger.ErrorContext(ctx, "failed to persist run report",
			"run_id", run.ID,
			"error", out.Err,
		)
	}
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.clock.After(d):
		return nil
	}
}

func (o *Orchestrator) cancelled(err error) error {
	return types.WrapError(types.WORKFLOW_CANCELLED, "run cancelled", err)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}
