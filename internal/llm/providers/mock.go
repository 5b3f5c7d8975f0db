package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/brandpulse-ai/brandpulse/internal/llm"
	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// MockCall records one call made to the mock provider.
type MockCall struct {
	Request llm.CompletionRequest
}

// MockProvider implements llm.Provider for tests and dry runs. It cycles
// through configured responses and records every request. Configured
// errors take precedence over responses for the same call index, which
// lets tests script throttling and failure sequences.
type MockProvider struct {
	mu            sync.RWMutex
	name          string
	responses     []string
	errs          []error
	responseIndex int
	calls         []MockCall
}

// NewMockProvider creates a mock provider that cycles through responses.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{
		name:      "mock",
		responses: responses,
	}
}

// WithName overrides the provider name so several mocks can coexist in a
// rotation.
func (p *MockProvider) WithName(name string) *MockProvider {
	p.name = name
	return p
}

// WithErrors scripts per-call errors; a nil entry means that call uses
// the next response instead.
func (p *MockProvider) WithErrors(errs ...error) *MockProvider {
	p.errs = errs
	return p
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return p.name
}

// Complete returns the next scripted error or response.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Request: req})
	idx := p.responseIndex
	p.responseIndex++

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}

	if len(p.responses) == 0 {
		return nil, llm.NewProviderUnavailableError(p.name, fmt.Errorf("no responses configured"))
	}

	response := p.responses[idx%len(p.responses)]
	return &llm.CompletionResponse{
		Content:    response,
		Model:      req.Model,
		TokensUsed: len(response) / 4,
	}, nil
}

// Health always reports healthy.
func (p *MockProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy(p.name + " mock")
}

// Calls returns a copy of all recorded calls.
func (p *MockProvider) Calls() []MockCall {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]MockCall(nil), p.calls...)
}

// CallCount returns the number of recorded calls.
func (p *MockProvider) CallCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.calls)
}
