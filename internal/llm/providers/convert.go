package providers

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/brandpulse-ai/brandpulse/internal/llm"
)

// toSchemaMessages converts a completion request into langchaingo
// MessageContent: an optional system instruction followed by the prompt.
func toSchemaMessages(req llm.CompletionRequest) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, 2)

	if req.System != "" {
		result = append(result, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}

	result = append(result, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	return result
}

// buildCallOptions converts request parameters to langchaingo call options.
func buildCallOptions(req llm.CompletionRequest) []llms.CallOption {
	callOpts := make([]llms.CallOption, 0, 3)

	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}

	return callOpts
}

// fromLangchainResponse converts a langchaingo response to a completion
// response, taking the first choice's content.
func fromLangchainResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	if resp == nil || len(resp.Choices) == 0 {
		return &llm.CompletionResponse{Model: model}
	}

	content := resp.Choices[0].Content

	return &llm.CompletionResponse{
		Content:    content,
		Model:      model,
		TokensUsed: len(content) / 4,
	}
}
