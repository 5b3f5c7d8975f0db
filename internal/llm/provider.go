package llm

import (
	"context"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// Provider defines the interface that all inference providers must
// implement. It provides a unified abstraction over different LLM
// services (Anthropic Claude, OpenAI GPT, local models, etc.).
type Provider interface {
	// Name returns the provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// Complete sends a completion request and returns the full response.
	// This is a blocking call that waits for the entire response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Health checks the health status of the provider and its connectivity
	Health(ctx context.Context) types.HealthStatus
}

// ProviderType identifies a provider implementation.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig holds the settings needed to construct a provider.
type ProviderConfig struct {
	Type         ProviderType `mapstructure:"type" yaml:"type"`
	APIKey       string       `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string       `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel string       `mapstructure:"default_model" yaml:"default_model"`
}

// CompletionRequest describes one inference call.
type CompletionRequest struct {
	// Model is the model identifier; empty means the provider default.
	Model string `json:"model,omitempty"`

	// System is the optional system instruction prepended to the prompt.
	System string `json:"system,omitempty"`

	// Prompt is the user content to complete.
	Prompt string `json:"prompt"`

	// MaxTokens bounds the generated output; 0 means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness; 0 means provider default.
	Temperature float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the result of one inference call.
type CompletionResponse struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Model echoes the model that produced the response.
	Model string `json:"model,omitempty"`

	// TokensUsed is an estimate of total tokens consumed, when known.
	TokensUsed int `json:"tokens_used,omitempty"`
}
