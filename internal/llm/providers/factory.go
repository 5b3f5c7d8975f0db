package providers

import (
	"fmt"

	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// NewProvider creates a new inference provider based on the configuration.
func NewProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)

	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)

	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)

	case llm.ProviderMock:
		return NewMockProvider([]string{"Mock response"}), nil

	default:
		return nil, types.NewError(llm.ErrProviderInvalidInput,
			fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}
