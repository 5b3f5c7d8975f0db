package main

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/brandpulse-ai/brandpulse/internal/cache"
	"github.com/brandpulse-ai/brandpulse/internal/config"
	"github.com/brandpulse-ai/brandpulse/internal/connector"
	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/llm/providers"
	"github.com/brandpulse-ai/brandpulse/internal/queue"
	"github.com/brandpulse-ai/brandpulse/internal/rotation"
	"github.com/brandpulse-ai/brandpulse/internal/sentiment"
	"github.com/brandpulse-ai/brandpulse/internal/store"
	"github.com/brandpulse-ai/brandpulse/internal/workflow"
)

// app holds the assembled runtime: every component the orchestrator
// needs, plus the shutdown hooks for the background loops.
type app struct {
	orchestrator *workflow.Orchestrator
	connectors   *connector.Registry
	shutdown     []func()
}

// close stops background loops in reverse start order.
func (a *app) close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i]()
	}
}

// buildApp assembles the full pipeline from configuration: providers
// into the registry, rotator, rate-limited queue, cache, sentiment
// engine, connectors, archive store, and the orchestrator on top.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	registry := llm.NewRegistry()
	ids := make([]string, 0, len(cfg.LLM.Providers))
	for _, pc := range cfg.LLM.Providers {
		provider, err := providers.NewProvider(llm.ProviderConfig{
			Type:         llm.ProviderType(pc.Type),
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
		ids = append(ids, provider.Name())
	}

	loopCtx, cancelLoops := context.WithCancel(ctx)
	a.shutdown = append(a.shutdown, cancelLoops)

	rotator := rotation.New(ids)
	rotator.Start(loopCtx)
	a.shutdown = append(a.shutdown, rotator.Stop)

	q := queue.New(queue.Config{
		MaxPerSecond: cfg.Queue.MaxPerSecond,
		MaxPerMinute: cfg.Queue.MaxPerMinute,
		MaxRetries:   cfg.Queue.MaxRetries,
		InitialDelay: cfg.Queue.InitialDelay,
		Throttled:    llm.IsRateLimited,
	}, queue.WithLogger(logger))
	q.Start(loopCtx)
	a.shutdown = append(a.shutdown, q.Stop)

	resultCache := cache.New(cfg.Cache.TTL, cache.WithSweepInterval(sweepOrDefault(cfg.Cache.SweepInterval)))
	resultCache.Start(loopCtx)
	a.shutdown = append(a.shutdown, resultCache.Stop)

	sizing := sentiment.SizeConfig{
		Min:          cfg.Batch.Min,
		Max:          cfg.Batch.Max,
		TargetTokens: cfg.Batch.TargetTokens,
	}
	if cfg.Batch.Strict {
		sizing = sentiment.StrictSizeConfig()
	}

	engine := sentiment.NewEngine(registry, rotator, q, resultCache, sentiment.EngineConfig{
		Model:     cfg.LLM.Model,
		DeepModel: cfg.LLM.DeepModel,
		Timeout:   cfg.LLM.Timeout,
		CacheTTL:  cfg.Cache.TTL,
		Sizing:    sizing,
	}, sentiment.WithLogger(logger))

	analyzer := sentiment.NewAnalyzer(engine, sentiment.WithAnalyzerLogger(logger))

	a.connectors = connector.NewRegistry()
	for _, cc := range cfg.Connectors {
		var c connector.Connector
		switch cc.Kind {
		case "web":
			c = connector.NewWebConnector(cc.Name, cc.Endpoint, nil)
		default:
			c = connector.NewStaticConnector(cc.Name, cc.Items...)
		}
		if err := a.connectors.Register(c); err != nil {
			return nil, err
		}
	}

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithMaxParallel(cfg.Core.ParallelLimit),
		workflow.WithRetryPolicy(workflow.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Multiplier:   cfg.Retry.Multiplier,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
	}

	if cfg.Tracing.Enabled {
		// Spans go to whatever tracer provider the process registers
		// globally; the endpoint names the collector operators point it at.
		logger.InfoContext(ctx, "tracing enabled", "endpoint", cfg.Tracing.Endpoint)
		opts = append(opts, workflow.WithTracer(otel.Tracer("brandpulse")))
	}

	if cfg.Store.Path != "" {
		archive, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.shutdown = append(a.shutdown, func() { _ = archive.Close() })
		opts = append(opts, workflow.WithStore(archive))
	}

	a.orchestrator = workflow.NewOrchestrator(a.connectors, analyzer, opts...)
	return a, nil
}

func sweepOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
