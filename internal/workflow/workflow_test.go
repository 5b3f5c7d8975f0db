package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/brandpulse-ai/brandpulse/internal/cache"
	"github.com/brandpulse-ai/brandpulse/internal/connector"
	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/llm/providers"
	"github.com/brandpulse-ai/brandpulse/internal/queue"
	"github.com/brandpulse-ai/brandpulse/internal/rotation"
	"github.com/brandpulse-ai/brandpulse/internal/sentiment"
	"github.com/brandpulse-ai/brandpulse/internal/store"
	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// memStore records saves in memory so tests can assert on persistence
// without touching disk. Setting failures makes the next N saves fail.
type memStore struct {
	mu       sync.Mutex
	saved    map[string][]store.Record
	failures int
	attempts int
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string][]store.Record)}
}

func (m *memStore) Save(ctx context.Context, collection string, records ...store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failures > 0 {
		m.failures--
		return types.NewError(types.STORE_SAVE_FAILED, "simulated save failure")
	}
	m.saved[collection] = append(m.saved[collection], records...)
	return nil
}

func (m *memStore) Query(ctx context.Context, collection string, filter store.Filter, opts store.QueryOptions) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[collection], nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved[collection])
}

// sentimentResponse builds a provider reply with one item per category,
// in index order.
func sentimentResponse(t *testing.T, categories ...sentiment.Category) string {
	t.Helper()
	type item struct {
		Index      int     `json:"index"`
		Category   string  `json:"category"`
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
	}
	var resp struct {
		Items   []item `json:"items"`
		Summary struct {
			Dominant     string `json:"dominant"`
			Implications string `json:"implications"`
		} `json:"summary"`
	}
	for i, cat := range categories {
		resp.Items = append(resp.Items, item{Index: i, Category: string(cat), Score: 0.8, Confidence: 0.9})
	}
	resp.Summary.Dominant = string(categories[0])
	resp.Summary.Implications = "reputation is holding steady"
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

// newTestAnalyzer wires a full sentiment stack over mock providers that
// always reply with the given canned responses.
func newTestAnalyzer(t *testing.T, responses ...string) *sentiment.Analyzer {
	t.Helper()

	alpha := providers.NewMockProvider(responses).WithName("alpha")
	beta := providers.NewMockProvider(responses).WithName("beta")

	registry := llm.NewRegistry()
	require.NoError(t, registry.Register(alpha))
	require.NoError(t, registry.Register(beta))

	rot := rotation.New([]string{"alpha", "beta"}, rotation.WithClock(clockwork.NewFakeClock()))

	q := queue.New(queue.Config{MaxPerSecond: 100, MaxPerMinute: 10_000, MaxRetries: 1, InitialDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)
	t.Cleanup(q.Stop)

	engine := sentiment.NewEngine(registry, rot, q, cache.New(10*time.Minute), sentiment.DefaultEngineConfig())
	return sentiment.NewAnalyzer(engine)
}

func fastRetries() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}
}

// autoAdvanceClock returns a fake clock that a background goroutine
// keeps advancing, so pauses resolve quickly without wall-clock waits.
func autoAdvanceClock(t *testing.T) clockwork.Clock {
	t.Helper()
	fc := clockwork.NewFakeClock()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				fc.Advance(250 * time.Millisecond)
				time.Sleep(200 * time.Microsecond)
			}
		}
	}()
	return fc
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 2*time.Second, policy.Delay(1))
	assert.Equal(t, 4*time.Second, policy.Delay(2))
	assert.Equal(t, 8*time.Second, policy.Delay(3))
	assert.Equal(t, 16*time.Second, policy.Delay(4))
	// Growth is capped at one minute.
	assert.Equal(t, time.Minute, policy.Delay(6))
	assert.Equal(t, time.Minute, policy.Delay(20))
}

func TestParseCompactDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseCompactDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"45x", "", "10", "s", "5w", "-3s", "3 s", "1h30m"} {
		_, err := ParseCompactDuration(bad)
		require.Error(t, err, bad)
		assert.Equal(t, types.CONFIG_INVALID_DURATION, types.CodeOf(err), bad)
	}
}

func TestInput_Validate(t *testing.T) {
	valid := Input{Subject: "acme", PrimarySources: []string{"news"}}
	assert.NoError(t, valid.Validate())

	for name, input := range map[string]Input{
		"missing subject":    {PrimarySources: []string{"news"}},
		"blank subject":      {Subject: "  ", PrimarySources: []string{"news"}},
		"no sources":         {Subject: "acme"},
		"empty source name":  {Subject: "acme", PrimarySources: []string{""}},
		"empty secondary":    {Subject: "acme", PrimarySources: []string{"news"}, SecondarySources: []string{" "}},
	} {
		err := input.Validate()
		require.Error(t, err, name)
		assert.Equal(t, types.WORKFLOW_INVALID_INPUT, types.CodeOf(err), name)
	}
}

func TestOrchestrator_RunHappyPath(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news",
		"great product launch", "record quarterly growth")))
	require.NoError(t, reg.Register(connector.NewStaticConnector("social",
		"support keeps ignoring tickets")))

	analyzer := newTestAnalyzer(t, sentimentResponse(t,
		sentiment.CategoryPositive, sentiment.CategoryPositive, sentiment.CategoryNegative))
	archive := newMemStore()

	orch := NewOrchestrator(reg, analyzer,
		WithRetryPolicy(fastRetries()),
		WithStore(archive),
	)

	result, err := orch.Run(context.Background(), Input{
		Subject:        "acme",
		PrimarySources: []string{"news", "social"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusSucceeded, result.Run.Status)
	require.NotNil(t, result.Run.CompletedAt)

	news, ok := result.Run.Slot("source:news")
	require.True(t, ok)
	assert.False(t, news.Failed())
	assert.Contains(t, news.Value, "great product launch")

	require.Len(t, result.Report.Items, 3)
	assert.Equal(t, 2, result.Report.Summary.Distribution[sentiment.CategoryPositive])
	assert.Equal(t, 1, result.Report.Summary.Distribution[sentiment.CategoryNegative])

	assert.Contains(t, result.Summary, "acme")
	assert.Contains(t, result.Summary, "source:news: ok")
	assert.Equal(t, 1, archive.count("reports"))

	status, slots := orch.Status()
	assert.Equal(t, RunStatusSucceeded, status)
	assert.Equal(t, 2, slots)
}

func TestOrchestrator_PersistenceRetriesTransientStoreFailure(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "steady coverage")))

	analyzer := newTestAnalyzer(t, sentimentResponse(t, sentiment.CategoryNeutral))
	archive := newMemStore()
	archive.failures = 2

	orch := NewOrchestrator(reg, analyzer,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}),
		WithStore(archive),
	)

	result, err := orch.Run(context.Background(), Input{
		Subject:        "acme",
		PrimarySources: []string{"news"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusSucceeded, result.Run.Status)
	assert.Equal(t, 1, archive.count("reports"), "report must land once the store recovers")
	assert.Equal(t, 3, archive.attempts)
}

func TestOrchestrator_PersistenceExhaustionDoesNotFailRun(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "steady coverage")))

	analyzer := newTestAnalyzer(t, sentimentResponse(t, sentiment.CategoryNeutral))
	archive := newMemStore()
	archive.failures = 100

	orch := NewOrchestrator(reg, analyzer,
		WithRetryPolicy(fastRetries()),
		WithStore(archive),
	)

	result, err := orch.Run(context.Background(), Input{
		Subject:        "acme",
		PrimarySources: []string{"news"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusSucceeded, result.Run.Status)
	assert.Equal(t, 0, archive.count("reports"))
	assert.Equal(t, fastRetries().MaxAttempts, archive.attempts,
		"save attempts are bounded by the retry policy")
}

func TestOrchestrator_OneFailingSourceDegradesNotFails(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "steady coverage")))
	require.NoError(t, reg.Register(connector.NewStaticConnector("social").
		WithError(errors.New("upstream down"))))

	analyzer := newTestAnalyzer(t, sentimentResponse(t, sentiment.CategoryNeutral))

	orch := NewOrchestrator(reg, analyzer, WithRetryPolicy(fastRetries()))

	result, err := orch.Run(context.Background(), Input{
		Subject:        "acme",
		PrimarySources: []string{"news", "social"},
	})
	require.NoError(t, err)

	assert.Equal(t, RunStatusSucceeded, result.Run.Status)

	failed, ok := result.Run.Slot("source:social")
	require.True(t, ok)
	assert.True(t, failed.Failed())
	assert.Contains(t, failed.Err, "upstream down")
	assert.Contains(t, failed.Err, string(types.WORKFLOW_TASK_EXHAUSTED))

	healthy, ok := result.Run.Slot("source:news")
	require.True(t, ok)
	assert.False(t, healthy.Failed())

	assert.Contains(t, result.Summary, "source:social: FAILED")
	require.Len(t, result.Report.Items, 1)
}

func TestOrchestrator_TracedRunSucceeds(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "steady coverage")))

	analyzer := newTestAnalyzer(t, sentimentResponse(t, sentiment.CategoryNeutral))

	orch := NewOrchestrator(reg, analyzer,
		WithRetryPolicy(fastRetries()),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)

	result, err := orch.Run(context.Background(), Input{
		Subject:        "acme",
		PrimarySources: []string{"news"},
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, result.Run.Status)
}

func TestOrchestrator_InvalidInputFailsFast(t *testing.T) {
	reg := connector.NewRegistry()
	analyzer := newTestAnalyzer(t)
	orch := NewOrchestrator(reg, analyzer)

	_, err := orch.Run(context.Background(), Input{})
	assert.Equal(t, types.WORKFLOW_INVALID_INPUT, types.CodeOf(err))

	status, _ := orch.Status()
	assert.Equal(t, RunStatusPending, status)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "line")))
	analyzer := newTestAnalyzer(t)

	orch := NewOrchestrator(reg, analyzer, WithRetryPolicy(fastRetries()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, Input{Subject: "acme", PrimarySources: []string{"news"}})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_CANCELLED, types.CodeOf(err))

	status, _ := orch.Status()
	assert.Equal(t, RunStatusCancelled, status)
}

func TestOrchestrator_AllPhasesPopulateSlots(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "subject coverage")))
	require.NoError(t, reg.Register(connector.NewStaticConnector("web", "community chatter")))

	analyzer := newTestAnalyzer(t, sentimentResponse(t,
		sentiment.CategoryPositive, sentiment.CategoryPositive,
		sentiment.CategoryPositive, sentiment.CategoryNeutral))

	orch := NewOrchestrator(reg, analyzer,
		WithRetryPolicy(fastRetries()),
		WithClock(autoAdvanceClock(t)),
	)

	result, err := orch.Run(context.Background(), Input{
		Subject:          "acme",
		Founders:         []string{"Jane Smith"},
		Competitors:      []string{"Globex"},
		PrimarySources:   []string{"news"},
		SecondarySources: []string{"web"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"source:news",
		"secondary:web",
		"founder:Jane Smith",
		"competitor:Globex",
	}, result.Run.SlotNames())

	founder, _ := result.Run.Slot("founder:Jane Smith")
	assert.False(t, founder.Failed())

	assert.Equal(t, []string{"primary", "secondary", "entities", "sentiment", "persist", "summary"},
		result.Run.Phases())

	require.Len(t, result.Report.Items, 4)
}

func TestMonitor_InvalidDurationRejectedBeforeAnyRun(t *testing.T) {
	reg := connector.NewRegistry()
	probe := connector.NewStaticConnector("news", "line")
	require.NoError(t, reg.Register(probe))
	analyzer := newTestAnalyzer(t)

	orch := NewOrchestrator(reg, analyzer, WithRetryPolicy(fastRetries()))

	_, err := orch.Monitor(context.Background(),
		Input{Subject: "acme", PrimarySources: []string{"news"}},
		MonitorConfig{Interval: "45x", Total: "1h"},
	)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_INVALID_DURATION, types.CodeOf(err))

	// Nothing ran: no slots were ever gathered.
	status, slots := orch.Status()
	assert.Equal(t, RunStatusPending, status)
	assert.Zero(t, slots)
}

func TestMonitor_StopsWhenWindowElapses(t *testing.T) {
	reg := connector.NewRegistry()
	require.NoError(t, reg.Register(connector.NewStaticConnector("news", "line")))
	analyzer := newTestAnalyzer(t, sentimentResponse(t, sentiment.CategoryNeutral))

	orch := NewOrchestrator(reg, analyzer, WithRetryPolicy(fastRetries()))

	// Interval equals the window, so exactly one run fits.
	results, err := orch.Monitor(context.Background(),
		Input{Subject: "acme", PrimarySources: []string{"news"}},
		MonitorConfig{Interval: "1h", Total: "1h"},
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, RunStatusSucceeded, results[0].Run.Status)
}

func TestSummarize_IsDeterministicAndNonEmpty(t *testing.T) {
	run := newRun("acme", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	run.setSlot("source:news", SlotValue{Value: "coverage"})
	run.setSlot("source:social", SlotValue{Err: "upstream down"})

	report := &sentiment.Report{
		Items: []sentiment.Record{
			{Category: sentiment.CategoryPositive, Score: 0.8, Confidence: 0.9},
		},
		Summary: sentiment.Aggregate{
			Dominant:       sentiment.CategoryPositive,
			MeanScore:      0.8,
			MeanConfidence: 0.9,
			Distribution: map[sentiment.Category]int{
				sentiment.CategoryPositive: 1,
			},
			Implications: "looking good",
		},
	}

	first := Summarize(run, report)
	second := Summarize(run, report)
	assert.Equal(t, first, second)

	assert.Contains(t, first, "acme")
	assert.Contains(t, first, "source:social: FAILED (upstream down)")
	assert.Contains(t, first, "dominant: positive")
	assert.Contains(t, first, "looking good")
}

func TestSummarize_NeverEmpty(t *testing.T) {
	run := newRun("acme", time.Now())
	out := Summarize(run, nil)
	assert.True(t, strings.Contains(out, "acme"))
	assert.Contains(t, out, "no sources gathered")
	assert.Contains(t, out, "no items analyzed")
}
