package sentiment

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// Options controls one aggregator invocation.
type Options struct {
	// DeepAnalysis re-runs a bounded subset of high-impact items through
	// the higher-fidelity single-item path.
	DeepAnalysis bool
}

const (
	// interBatchDelay smooths throughput between sequential batch calls.
	interBatchDelay = 500 * time.Millisecond

	// maxDeepItems bounds how many items deep analysis re-examines.
	maxDeepItems = 10

	// deepEngagementThreshold marks an item high-impact by engagement.
	deepEngagementThreshold = 100

	// deepConfidenceThreshold flags low-confidence first-pass results
	// for re-analysis.
	deepConfidenceThreshold = 0.5
)

// Analyzer drives the batch engine over an arbitrary text set and folds
// per-item results into an aggregate report.
type Analyzer struct {
	engine *Engine
	logger *slog.Logger
	clock  clockwork.Clock
}

// AnalyzerOption is a functional option for configuring an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger configures structured logging.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithAnalyzerClock overrides the wall clock for deterministic tests.
func WithAnalyzerClock(clock clockwork.Clock) AnalyzerOption {
	return func(a *Analyzer) {
		a.clock = clock
	}
}

// NewAnalyzer creates an Analyzer over the given engine.
func NewAnalyzer(engine *Engine, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		engine: engine,
		logger: slog.Default(),
		clock:  clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze scores every item and computes the aggregate summary. The
// result always has exactly one Record per input item, in input order;
// items whose analysis failed carry degraded placeholders.
func (a *Analyzer) Analyze(ctx context.Context, items []Item, opts Options) (*Report, error) {
	if len(items) == 0 {
		return &Report{Items: []Record{}, Summary: aggregateRecords(nil, "")}, nil
	}

	size := OptimalBatchSize(itemTexts(items), a.engine.Sizing())
	batches := partition(items, size)

	a.logger.InfoContext(ctx, "starting sentiment analysis",
		"items", len(items),
		"batch_size", size,
		"batches", len(batches),
	)

	records := make([]Record, 0, len(items))
	implications := ""

	for i, batch := range batches {
		if i > 0 {
			if err := a.pause(ctx, interBatchDelay); err != nil {
				return nil, err
			}
		}

		batchRecords, err := a.analyzeBatchSafely(ctx, batch)
		if err != nil {
			return nil, err
		}
		records = append(records, batchRecords.Items...)
		if implications == "" && batchRecords.Summary.Implications != "" {
			implications = batchRecords.Summary.Implications
		}
	}

	if opts.DeepAnalysis {
		a.deepen(ctx, items, records)
	}

	return &Report{
		Items:   records,
		Summary: aggregateRecords(records, implications),
	}, nil
}

// analyzeBatchSafely runs one batch call, falling back to per-item
// analysis if the call fails unexpectedly, so a bad batch never loses
// its items.
func (a *Analyzer) analyzeBatchSafely(ctx context.Context, batch []Item) (result *BatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "batch analysis panicked, analyzing items individually", "panic", r)
			result, err = a.analyzeIndividually(ctx, batch)
		}
	}()

	result, err = a.engine.AnalyzeBatch(ctx, itemTexts(batch))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		a.logger.WarnContext(ctx, "batch analysis failed, analyzing items individually", "error", err)
		return a.analyzeIndividually(ctx, batch)
	}
	return result, nil
}

// analyzeIndividually is the per-item rescue path for a failed batch.
func (a *Analyzer) analyzeIndividually(ctx context.Context, batch []Item) (*BatchResult, error) {
	records := make([]Record, len(batch))
	for i, item := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records[i] = a.engine.AnalyzeOne(ctx, item)
	}
	return &BatchResult{Items: records, Summary: aggregateRecords(records, "")}, nil
}

// deepen re-analyzes a bounded subset of high-impact items through the
// higher-fidelity path and overwrites their first-pass entries.
func (a *Analyzer) deepen(ctx context.Context, items []Item, records []Record) {
	selected := 0
	for i, item := range items {
		if selected >= maxDeepItems || ctx.Err() != nil {
			return
		}

		highImpact := item.Engagement >= deepEngagementThreshold ||
			item.VerifiedAuthor ||
			records[i].Confidence < deepConfidenceThreshold

		if !highImpact {
			continue
		}

		a.logger.DebugContext(ctx, "deep-analyzing high-impact item",
			"index", i,
			"engagement", item.Engagement,
			"verified", item.VerifiedAuthor,
			"first_pass_confidence", records[i].Confidence,
		)

		records[i] = a.engine.AnalyzeOne(ctx, item)
		selected++
	}
}

func (a *Analyzer) pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock.After(d):
		return nil
	}
}

func itemTexts(items []Item) []string {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	return texts
}

// TextsToItems wraps plain strings as Items with no engagement metadata.
func TextsToItems(texts []string) []Item {
	items := make([]Item, len(texts))
	for i, t := range texts {
		items[i] = Item{Text: t}
	}
	return items
}

// aggregateRecords computes the summary distribution over records:
// dominant category by count (ties broken by the fixed category order),
// mean score and confidence, per-category counts, and the top five
// aspects ranked by mention count with each aspect's majority sentiment.
func aggregateRecords(records []Record, implications string) Aggregate {
	agg := Aggregate{
		Dominant:     CategoryNeutral,
		Distribution: make(map[Category]int, len(categoryOrder)),
		Implications: implications,
	}
	for _, cat := range categoryOrder {
		agg.Distribution[cat] = 0
	}

	if len(records) == 0 {
		return agg
	}

	var scoreSum, confSum float64
	aspectTotals := make(map[string]int)
	aspectByCat := make(map[string]map[Category]int)

	for _, rec := range records {
		agg.Distribution[rec.Category]++
		scoreSum += rec.Score
		confSum += rec.Confidence

		for _, aspect := range rec.Aspects {
			aspectTotals[aspect]++
			if aspectByCat[aspect] == nil {
				aspectByCat[aspect] = make(map[Category]int)
			}
			aspectByCat[aspect][rec.Category]++
		}
	}

	n := float64(len(records))
	agg.MeanScore = scoreSum / n
	agg.MeanConfidence = confSum / n

	best := -1
	for _, cat := range categoryOrder {
		if count := agg.Distribution[cat]; count > best {
			best = count
			agg.Dominant = cat
		}
	}

	aspects := make([]AspectCount, 0, len(aspectTotals))
	for aspect, total := range aspectTotals {
		aspects = append(aspects, AspectCount{
			Aspect:    aspect,
			Sentiment: majorityCategory(aspectByCat[aspect]),
			Mentions:  total,
		})
	}
	sort.Slice(aspects, func(i, j int) bool {
		if aspects[i].Mentions != aspects[j].Mentions {
			return aspects[i].Mentions > aspects[j].Mentions
		}
		return aspects[i].Aspect < aspects[j].Aspect
	})
	if len(aspects) > 5 {
		aspects = aspects[:5]
	}
	agg.TopAspects = aspects

	return agg
}

func majorityCategory(counts map[Category]int) Category {
	best := -1
	result := CategoryNeutral
	for _, cat := range categoryOrder {
		if counts[cat] > best {
			best = counts[cat]
			result = cat
		}
	}
	return result
}
