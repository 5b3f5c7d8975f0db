// Package config loads and validates the BrandPulse configuration file.
package config

import (
	"time"
)

// Config is the root configuration for BrandPulse.
type Config struct {
	Core       CoreConfig        `mapstructure:"core" yaml:"core"`
	LLM        LLMConfig         `mapstructure:"llm" yaml:"llm" validate:"required"`
	Queue      QueueConfig       `mapstructure:"queue" yaml:"queue"`
	Retry      RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Cache      CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Batch      BatchConfig       `mapstructure:"batch" yaml:"batch"`
	Connectors []ConnectorConfig `mapstructure:"connectors" yaml:"connectors"`
	Store      StoreConfig       `mapstructure:"store" yaml:"store"`
	Monitor    MonitorConfig     `mapstructure:"monitor" yaml:"monitor,omitempty"`
	Logging    LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Tracing    TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	ParallelLimit int           `mapstructure:"parallel_limit" yaml:"parallel_limit" validate:"min=1,max=100"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LLMConfig lists the providers the rotator spreads requests over and
// the models the sentiment engine calls.
type LLMConfig struct {
	Providers []ProviderConfig `mapstructure:"providers" yaml:"providers" validate:"required,min=1,dive"`
	Model     string           `mapstructure:"model" yaml:"model"`
	DeepModel string           `mapstructure:"deep_model" yaml:"deep_model"`
	Timeout   time.Duration    `mapstructure:"timeout" yaml:"timeout"`
}

// ProviderConfig describes one LLM provider. API keys support
// ${VAR_NAME} environment interpolation.
type ProviderConfig struct {
	Name    string `mapstructure:"name" yaml:"name" validate:"required"`
	Type    string `mapstructure:"type" yaml:"type" validate:"required,oneof=anthropic openai ollama mock"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model   string `mapstructure:"model" yaml:"model,omitempty"`
}

// QueueConfig sets the provider request budgets.
type QueueConfig struct {
	MaxPerSecond int           `mapstructure:"max_per_second" yaml:"max_per_second" validate:"min=1"`
	MaxPerMinute int           `mapstructure:"max_per_minute" yaml:"max_per_minute" validate:"min=1"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries" validate:"min=1"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
}

// RetryConfig sets the gathering task retry policy.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier" validate:"min=1"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// CacheConfig sets result cache lifetimes.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// BatchConfig bounds sentiment batch sizing.
type BatchConfig struct {
	Min          int  `mapstructure:"min" yaml:"min" validate:"min=1"`
	Max          int  `mapstructure:"max" yaml:"max" validate:"min=1"`
	TargetTokens int  `mapstructure:"target_tokens" yaml:"target_tokens" validate:"min=100"`
	Strict       bool `mapstructure:"strict" yaml:"strict"`
}

// ConnectorConfig describes one data source. Kind selects the
// implementation: "web" scrapes Endpoint, "static" serves Items.
type ConnectorConfig struct {
	Name     string   `mapstructure:"name" yaml:"name" validate:"required"`
	Kind     string   `mapstructure:"kind" yaml:"kind" validate:"required,oneof=web static"`
	Endpoint string   `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Items    []string `mapstructure:"items" yaml:"items,omitempty"`
}

// StoreConfig sets where run reports are archived.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MonitorConfig sets the default monitoring cadence, compact duration
// form ("30s", "15m", "2h", "1d").
type MonitorConfig struct {
	Interval string `mapstructure:"interval" yaml:"interval"`
	Total    string `mapstructure:"total" yaml:"total"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present:
// a mock provider and an empty connector list, enough for dry runs.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			ParallelLimit: 10,
			Timeout:       5 * time.Minute,
		},
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Name: "mock", Type: "mock"},
			},
			Model:   "claude-sonnet-4-5",
			Timeout: 45 * time.Second,
		},
		Queue: QueueConfig{
			MaxPerSecond: 5,
			MaxPerMinute: 200,
			MaxRetries:   3,
			InitialDelay: time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			Multiplier:   2,
			MaxDelay:     time.Minute,
		},
		Cache: CacheConfig{
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Batch: BatchConfig{
			Min:          5,
			Max:          25,
			TargetTokens: 10_000,
		},
		Store: StoreConfig{
			Path: "brandpulse.db",
		},
		Monitor: MonitorConfig{
			Interval: "15m",
			Total:    "2h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
