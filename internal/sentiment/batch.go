package sentiment

// SizeConfig bounds how many texts go into one inference call. Clamping
// bounds both cost and the chance of truncated model output; the stricter
// range is used where truncation risk is high.
type SizeConfig struct {
	// Min and Max clamp the computed batch size.
	Min int `mapstructure:"min" yaml:"min"`
	Max int `mapstructure:"max" yaml:"max"`

	// TargetTokens is the approximate token budget per batch.
	TargetTokens int `mapstructure:"target_tokens" yaml:"target_tokens"`
}

// DefaultSizeConfig is the primary batching range.
func DefaultSizeConfig() SizeConfig {
	return SizeConfig{Min: 5, Max: 25, TargetTokens: 10_000}
}

// StrictSizeConfig is the tighter range for call sites where truncated
// output is likelier (long-form sources, deep analysis).
func StrictSizeConfig() SizeConfig {
	return SizeConfig{Min: 5, Max: 10, TargetTokens: 10_000}
}

// OptimalBatchSize estimates tokens per text as length/4, divides the
// target token budget by it, and clamps the result to [Min, Max].
// The result is always within the clamp range regardless of input.
func OptimalBatchSize(texts []string, cfg SizeConfig) int {
	if cfg.Min <= 0 {
		cfg.Min = 1
	}
	if cfg.Max < cfg.Min {
		cfg.Max = cfg.Min
	}
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = 10_000
	}

	if len(texts) == 0 {
		return cfg.Min
	}

	total := 0
	for _, t := range texts {
		total += len(t)
	}
	avgTokens := (total / len(texts)) / 4
	if avgTokens < 1 {
		avgTokens = 1
	}

	size := cfg.TargetTokens / avgTokens
	if size < cfg.Min {
		return cfg.Min
	}
	if size > cfg.Max {
		return cfg.Max
	}
	return size
}

// partition splits items into index-ordered batches of at most size.
func partition(items []Item, size int) [][]Item {
	if size < 1 {
		size = 1
	}

	var batches [][]Item
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
