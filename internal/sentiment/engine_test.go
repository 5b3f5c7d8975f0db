package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse-ai/brandpulse/internal/cache"
	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/llm/providers"
	"github.com/brandpulse-ai/brandpulse/internal/queue"
	"github.com/brandpulse-ai/brandpulse/internal/rotation"
)

// wellFormedResponse builds a valid model response for n items cycling
// through the given categories.
func wellFormedResponse(categories ...Category) string {
	resp := batchResponse{
		Summary: summaryResponse{Dominant: categories[0], Implications: "customers notice support quality"},
	}
	for i, cat := range categories {
		score := 0.9
		if cat == CategoryNegative {
			score = 0.1
		}
		resp.Items = append(resp.Items, itemResponse{
			Index:      i,
			Category:   cat,
			Score:      score,
			Confidence: 0.8,
			Aspects:    []string{"support"},
		})
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

type engineFixture struct {
	engine  *Engine
	cache   *cache.Cache
	rotator *rotation.Rotator
	alpha   *providers.MockProvider
	beta    *providers.MockProvider
}

func newEngineFixture(t *testing.T, alpha, beta *providers.MockProvider) *engineFixture {
	t.Helper()

	registry := llm.NewRegistry()
	require.NoError(t, registry.Register(alpha))
	require.NoError(t, registry.Register(beta))

	rot := rotation.New([]string{alpha.Name(), beta.Name()}, rotation.WithClock(clockwork.NewFakeClock()))

	q := queue.New(queue.Config{MaxPerSecond: 100, MaxPerMinute: 10_000, MaxRetries: 1, InitialDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)
	t.Cleanup(q.Stop)

	c := cache.New(10 * time.Minute)

	engine := NewEngine(registry, rot, q, c, DefaultEngineConfig())
	return &engineFixture{engine: engine, cache: c, rotator: rot, alpha: alpha, beta: beta}
}

func TestEngine_AnalyzeBatchHappyPath(t *testing.T) {
	alpha := providers.NewMockProvider([]string{wellFormedResponse(CategoryPositive, CategoryNegative, CategoryNeutral)}).WithName("alpha")
	beta := providers.NewMockProvider(nil).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	texts := []string{"great product", "awful support", "fine, nothing special"}
	result, err := f.engine.AnalyzeBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, CategoryPositive, result.Items[0].Category)
	assert.Equal(t, CategoryNegative, result.Items[1].Category)
	assert.Equal(t, CategoryNeutral, result.Items[2].Category)
	assert.False(t, result.Degraded)

	assert.Equal(t, 1, result.Summary.Distribution[CategoryPositive])
	assert.Equal(t, 1, result.Summary.Distribution[CategoryNegative])
	assert.Equal(t, 1, result.Summary.Distribution[CategoryNeutral])

	// Exactly one cache entry, keyed by the batch fingerprint.
	assert.Equal(t, 1, f.cache.Len())
	assert.True(t, f.cache.Has(Fingerprint(texts)))
}

func TestEngine_AnalyzeBatchCacheHit(t *testing.T) {
	alpha := providers.NewMockProvider([]string{wellFormedResponse(CategoryPositive)}).WithName("alpha")
	beta := providers.NewMockProvider(nil).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	texts := []string{"great product"}
	_, err := f.engine.AnalyzeBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Equal(t, 1, alpha.CallCount())

	_, err = f.engine.AnalyzeBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, 1, alpha.CallCount(), "second identical batch must be served from cache")
}

func TestEngine_FallsBackToAlternateProvider(t *testing.T) {
	alpha := providers.NewMockProvider(nil).
		WithName("alpha").
		WithErrors(llm.NewProviderUnavailableError("alpha", nil))
	beta := providers.NewMockProvider([]string{wellFormedResponse(CategoryNegative)}).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	result, err := f.engine.AnalyzeBatch(context.Background(), []string{"awful support"})
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, CategoryNegative, result.Items[0].Category)
	assert.False(t, result.Items[0].Degraded)
	assert.Equal(t, 1, beta.CallCount())
}

func TestEngine_ParseFailureTriggersFallback(t *testing.T) {
	alpha := providers.NewMockProvider([]string{"sorry, I cannot answer in JSON"}).WithName("alpha")
	beta := providers.NewMockProvider([]string{wellFormedResponse(CategoryMixed)}).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	result, err := f.engine.AnalyzeBatch(context.Background(), []string{"conflicted about this"})
	require.NoError(t, err)
	assert.Equal(t, CategoryMixed, result.Items[0].Category)
}

func TestEngine_ItemCountMismatchIsParseFailure(t *testing.T) {
	// Model returns one item for a two-text batch: shape is invalid.
	alpha := providers.NewMockProvider([]string{wellFormedResponse(CategoryPositive)}).WithName("alpha")
	beta := providers.NewMockProvider([]string{wellFormedResponse(CategoryPositive, CategoryNegative)}).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	result, err := f.engine.AnalyzeBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.False(t, result.Degraded)
}

func TestEngine_AllProvidersFailSynthesizesPlaceholders(t *testing.T) {
	failure := llm.NewProviderUnavailableError("x", nil)
	alpha := providers.NewMockProvider(nil).WithName("alpha").WithErrors(failure, failure)
	beta := providers.NewMockProvider(nil).WithName("beta").WithErrors(failure, failure)
	f := newEngineFixture(t, alpha, beta)

	texts := []string{"a", "b", "c", "d"}
	result, err := f.engine.AnalyzeBatch(context.Background(), texts)
	require.NoError(t, err, "analysis failure must never surface as an error")

	require.Len(t, result.Items, len(texts), "placeholder synthesis must preserve item count")
	assert.True(t, result.Degraded)
	for _, rec := range result.Items {
		assert.Equal(t, CategoryNeutral, rec.Category)
		assert.Equal(t, 0.5, rec.Score)
		assert.Equal(t, 0.5, rec.Confidence)
		assert.True(t, rec.Degraded)
	}

	// Degraded results are not cached; a healthy provider should get a
	// fresh chance next time.
	assert.Equal(t, 0, f.cache.Len())
}

func TestEngine_RecordsOutcomesWithRotator(t *testing.T) {
	failure := llm.NewProviderUnavailableError("alpha", nil)
	alpha := providers.NewMockProvider(nil).WithName("alpha").WithErrors(failure)
	beta := providers.NewMockProvider([]string{wellFormedResponse(CategoryPositive)}).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	_, err := f.engine.AnalyzeBatch(context.Background(), []string{"great"})
	require.NoError(t, err)

	stats := f.rotator.Snapshot()
	require.Equal(t, "alpha", stats[0].ID)
	assert.Equal(t, float64(1), stats[0].RecentErrors)
	assert.Zero(t, stats[1].RecentErrors)
}

func TestEngine_AnalyzeOneUsesDeepModel(t *testing.T) {
	alpha := providers.NewMockProvider([]string{wellFormedResponse(CategoryNegative)}).WithName("alpha")
	beta := providers.NewMockProvider(nil).WithName("beta")

	registry := llm.NewRegistry()
	require.NoError(t, registry.Register(alpha))
	require.NoError(t, registry.Register(beta))

	rot := rotation.New([]string{"alpha", "beta"}, rotation.WithClock(clockwork.NewFakeClock()))
	q := queue.New(queue.Config{MaxPerSecond: 100, MaxPerMinute: 10_000})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	cfg := DefaultEngineConfig()
	cfg.Model = "fast-model"
	cfg.DeepModel = "deep-model"
	engine := NewEngine(registry, rot, q, cache.New(time.Minute), cfg)

	rec := engine.AnalyzeOne(context.Background(), Item{Text: "terrible experience"})
	assert.Equal(t, CategoryNegative, rec.Category)

	calls := alpha.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "deep-model", calls[0].Request.Model)
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]string{"x", "y"})
	b := Fingerprint([]string{"x", "y"})
	c := Fingerprint([]string{"x", "z"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Joining must not collide across item boundaries.
	assert.NotEqual(t, Fingerprint([]string{"xy"}), Fingerprint([]string{"x", "y"}))
}

func TestEngine_EmptyInput(t *testing.T) {
	alpha := providers.NewMockProvider(nil).WithName("alpha")
	beta := providers.NewMockProvider(nil).WithName("beta")
	f := newEngineFixture(t, alpha, beta)

	result, err := f.engine.AnalyzeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, alpha.CallCount())
}

func ExampleFingerprint() {
	fmt.Println(len(Fingerprint([]string{"great product"})))
	// Output: 64
}
