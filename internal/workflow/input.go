package workflow

import (
	"strings"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// Input describes one brand run: the subject to investigate, the
// related entities worth their own gathering pass, and which registered
// connectors each phase fans out over.
type Input struct {
	Subject     string   `json:"subject"`
	Founders    []string `json:"founders,omitempty"`
	Competitors []string `json:"competitors,omitempty"`

	// PrimarySources and SecondarySources name registered connectors;
	// empty secondary skips the second gathering phase.
	PrimarySources   []string `json:"primary_sources"`
	SecondarySources []string `json:"secondary_sources,omitempty"`

	// Limit caps items per connector fetch, 0 for the connector default.
	Limit int `json:"limit,omitempty"`

	// DeepAnalysis enables second-pass analysis of high-impact items.
	DeepAnalysis bool `json:"deep_analysis,omitempty"`
}

// Validate fails fast on inputs no amount of retrying can fix.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return types.NewError(types.WORKFLOW_INVALID_INPUT, "subject is required")
	}
	if len(in.PrimarySources) == 0 {
		return types.NewError(types.WORKFLOW_INVALID_INPUT, "at least one primary source is required")
	}
	for _, name := range append(append([]string{}, in.PrimarySources...), in.SecondarySources...) {
		if strings.TrimSpace(name) == "" {
			return types.NewError(types.WORKFLOW_INVALID_INPUT, "source names cannot be empty")
		}
	}
	return nil
}
