package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/brandpulse-ai/brandpulse/internal/cache"
	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/queue"
	"github.com/brandpulse-ai/brandpulse/internal/rotation"
)

// EngineConfig controls the batch sentiment engine.
type EngineConfig struct {
	// Model is the model id used for batch analysis; empty means each
	// provider's default.
	Model string `mapstructure:"model" yaml:"model"`

	// DeepModel is the higher-fidelity model used by the single-item
	// path during deep analysis.
	DeepModel string `mapstructure:"deep_model" yaml:"deep_model"`

	// Timeout is the absolute wall-clock budget per provider call.
	// Exceeding it is a transient failure eligible for fallback.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// CacheTTL bounds how long a successful batch result is memoized.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// Sizing clamps batch sizes. The clamp range is configuration, not
	// a separate code path.
	Sizing SizeConfig `mapstructure:"sizing" yaml:"sizing"`
}

// DefaultEngineConfig returns the primary engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Timeout:  45 * time.Second,
		CacheTTL: 10 * time.Minute,
		Sizing:   DefaultSizeConfig(),
	}
}

// Engine analyzes batches of texts through rotated, rate-limited,
// memoized inference calls.
type Engine struct {
	registry *llm.Registry
	rotator  *rotation.Rotator
	queue    *queue.Queue
	cache    *cache.Cache
	cfg      EngineConfig
	logger   *slog.Logger
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithLogger configures structured logging for engine decisions.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine wired to its collaborators.
func NewEngine(registry *llm.Registry, rotator *rotation.Rotator, q *queue.Queue, c *cache.Cache, cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	e := &Engine{
		registry: registry,
		rotator:  rotator,
		queue:    q,
		cache:    c,
		cfg:      cfg,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Sizing returns the engine's batch size configuration.
func (e *Engine) Sizing() SizeConfig {
	return e.cfg.Sizing
}

// Fingerprint computes the deterministic cache key for a batch of texts.
func Fingerprint(texts []string) string {
	h := sha256.Sum256([]byte(strings.Join(texts, "\x1f")))
	return hex.EncodeToString(h[:])
}

// AnalyzeBatch analyzes texts as one inference call. Provider failures
// never surface as errors: the engine tries the chosen provider, falls
// back to an alternate once, and finally synthesizes degraded neutral
// placeholders per item. The only returned error is context cancellation.
func (e *Engine) AnalyzeBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	if len(texts) == 0 {
		return &BatchResult{Items: []Record{}, Summary: aggregateRecords(nil, "")}, nil
	}

	key := Fingerprint(texts)
	if cached, ok := e.cache.Get(key); ok {
		if result, ok := cached.(*BatchResult); ok {
			e.logger.DebugContext(ctx, "batch cache hit", "fingerprint", key[:12])
			return result, nil
		}
	}

	// Explicit ordered fallback chain: chosen provider, then one
	// alternate, then placeholder synthesis.
	for _, providerID := range e.providerChain() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.attempt(ctx, providerID, e.cfg.Model, texts)
		e.rotator.RecordResult(providerID, err == nil)
		if err != nil {
			e.logger.WarnContext(ctx, "batch analysis attempt failed",
				"provider", providerID,
				"batch_size", len(texts),
				"error", err,
			)
			continue
		}

		e.cache.Set(key, result, e.cfg.CacheTTL)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.WarnContext(ctx, "all providers failed, synthesizing degraded placeholders",
		"batch_size", len(texts),
	)

	items := make([]Record, len(texts))
	for i := range items {
		items[i] = placeholderRecord()
	}
	return &BatchResult{
		Items:    items,
		Summary:  aggregateRecords(items, ""),
		Degraded: true,
	}, nil
}

// AnalyzeOne analyzes a single item through the higher-fidelity model.
// Like the batch path it degrades to a placeholder instead of failing.
func (e *Engine) AnalyzeOne(ctx context.Context, item Item) Record {
	model := e.cfg.DeepModel
	if model == "" {
		model = e.cfg.Model
	}

	texts := []string{item.Text}
	for _, providerID := range e.providerChain() {
		if ctx.Err() != nil {
			break
		}

		result, err := e.attempt(ctx, providerID, model, texts)
		e.rotator.RecordResult(providerID, err == nil)
		if err != nil {
			e.logger.WarnContext(ctx, "single-item analysis attempt failed",
				"provider", providerID,
				"error", err,
			)
			continue
		}

		return result.Items[0]
	}

	return placeholderRecord()
}

// providerChain returns the rotation's pick plus one distinct alternate.
func (e *Engine) providerChain() []string {
	primary := e.rotator.Next()
	chain := []string{primary}

	if alternate := e.rotator.Next(); alternate != primary {
		chain = append(chain, alternate)
	}
	return chain
}

// attempt runs one provider call through the rate-limited queue and
// parses the output. Parse failures and provider errors both fail the
// attempt so the caller moves down the fallback chain.
func (e *Engine) attempt(ctx context.Context, providerID, model string, texts []string) (*BatchResult, error) {
	provider, err := e.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	req := llm.CompletionRequest{
		Model:       model,
		System:      systemPrompt,
		Prompt:      buildBatchPrompt(texts),
		Temperature: 0.2,
	}

	raw, err := e.queue.Execute(ctx, func(opCtx context.Context) (any, error) {
		callCtx, cancel := context.WithTimeout(opCtx, e.cfg.Timeout)
		defer cancel()

		resp, err := provider.Complete(callCtx, req)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return nil, llm.NewTimeoutError("provider call exceeded " + e.cfg.Timeout.String())
			}
			return nil, err
		}
		return resp.Content, nil
	})
	if err != nil {
		return nil, err
	}

	content, _ := raw.(string)
	parsed, err := parseBatchResponse(content, len(texts))
	if err != nil {
		return nil, err
	}

	items := parsed.toRecords(len(texts))
	return &BatchResult{
		Items:   items,
		Summary: aggregateRecords(items, parsed.Summary.Implications),
	}, nil
}
