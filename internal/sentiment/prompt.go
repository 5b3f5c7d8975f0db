package sentiment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brandpulse-ai/brandpulse/internal/llm"
)

const systemPrompt = `You are a sentiment analysis engine. You respond with a single JSON object and nothing else: no prose, no markdown fences.`

// batchResponse is the fixed JSON shape requested from the model.
type batchResponse struct {
	Items   []itemResponse  `json:"items"`
	Summary summaryResponse `json:"summary"`
}

type itemResponse struct {
	Index      int      `json:"index"`
	Category   Category `json:"category"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Aspects    []string `json:"aspects,omitempty"`
	Themes     []string `json:"themes,omitempty"`
}

type summaryResponse struct {
	Dominant     Category `json:"dominant"`
	Implications string   `json:"implications"`
}

// buildBatchPrompt formats all texts into one structured prompt that
// demands the fixed JSON shape, one result entry per input index.
func buildBatchPrompt(texts []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the sentiment of the following %d texts.\n\n", len(texts))
	b.WriteString("Respond with exactly this JSON shape:\n")
	b.WriteString(`{"items":[{"index":0,"category":"positive|negative|neutral|mixed","score":0.0,"confidence":0.0,"aspects":["..."],"themes":["..."]}],"summary":{"dominant":"positive|negative|neutral|mixed","implications":"one-sentence business implication"}}`)
	b.WriteString("\n\nRules: score is sentiment magnitude in [0,1]; confidence is your certainty in [0,1]; ")
	b.WriteString("items must contain one entry per input text, in input order; aspects are concrete product/service facets mentioned.\n\nTexts:\n")

	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i, text)
	}

	return b.String()
}

// parseBatchResponse runs the layered extraction over raw model output
// and validates the decoded shape against the input size. Any mismatch is
// a parse failure so the caller can fall back.
func parseBatchResponse(raw string, want int) (*batchResponse, error) {
	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, llm.NewParseError("response JSON does not match expected shape", err)
	}

	if len(resp.Items) != want {
		return nil, llm.NewParseError(
			fmt.Sprintf("response has %d items, expected %d", len(resp.Items), want), nil)
	}

	return &resp, nil
}

// toRecords converts a validated response into per-item Records ordered
// by the index the model reported. An out-of-range or duplicate index
// takes the first open slot instead, so every input ends up with exactly
// one record.
func (r *batchResponse) toRecords(want int) []Record {
	records := make([]Record, want)
	seen := make([]bool, want)

	for _, item := range r.Items {
		idx := item.Index
		if idx < 0 || idx >= want || seen[idx] {
			for i, taken := range seen {
				if !taken {
					idx = i
					break
				}
			}
		}
		seen[idx] = true
		records[idx] = Record{
			Category:   item.Category,
			Score:      clamp01(item.Score),
			Confidence: clamp01(item.Confidence),
			Aspects:    item.Aspects,
			Themes:     item.Themes,
		}
	}

	return records
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
