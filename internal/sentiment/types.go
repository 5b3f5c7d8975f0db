// Package sentiment scores sentiment over arbitrary text sets by batching
// them through inference providers. Analysis is defensive end to end:
// unreliable model output goes through layered extraction, failed
// providers are rotated away from, and when nothing works each item gets
// a degraded neutral placeholder instead of an error.
package sentiment

import (
	"encoding/json"
	"fmt"
)

// Category classifies the sentiment of one text item.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryNeutral  Category = "neutral"
	CategoryMixed    Category = "mixed"
)

// categoryOrder fixes tie-breaking when counting dominant categories.
var categoryOrder = []Category{CategoryPositive, CategoryNegative, CategoryNeutral, CategoryMixed}

// String returns the string representation of the Category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPositive, CategoryNegative, CategoryNeutral, CategoryMixed:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler, rejecting unknown categories
// so malformed model output fails the parse layer instead of leaking
// through as an empty category.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	cat := Category(s)
	if !cat.IsValid() {
		return fmt.Errorf("invalid sentiment category: %s", s)
	}

	*c = cat
	return nil
}

// Item is one unit of input text with the authorship and engagement
// signals used to pick high-impact items for deep analysis.
type Item struct {
	Text           string `json:"text"`
	Engagement     int    `json:"engagement,omitempty"`
	VerifiedAuthor bool   `json:"verified_author,omitempty"`
}

// Record is the per-item analysis result.
type Record struct {
	Category   Category `json:"category"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Aspects    []string `json:"aspects,omitempty"`
	Themes     []string `json:"themes,omitempty"`

	// Degraded marks a synthesized placeholder produced when every
	// provider attempt failed.
	Degraded bool `json:"degraded,omitempty"`
}

// placeholderRecord is the degraded neutral result substituted when
// genuine analysis is unavailable, so consumers never see a missing value.
func placeholderRecord() Record {
	return Record{
		Category:   CategoryNeutral,
		Score:      0.5,
		Confidence: 0.5,
		Degraded:   true,
	}
}

// AspectCount is one row of the ranked aspect table.
type AspectCount struct {
	Aspect    string   `json:"aspect"`
	Sentiment Category `json:"sentiment"`
	Mentions  int      `json:"mentions"`
}

// Aggregate summarizes a set of Records.
type Aggregate struct {
	Dominant       Category         `json:"dominant"`
	MeanScore      float64          `json:"mean_score"`
	MeanConfidence float64          `json:"mean_confidence"`
	Distribution   map[Category]int `json:"distribution"`
	TopAspects     []AspectCount    `json:"top_aspects,omitempty"`
	Implications   string           `json:"implications,omitempty"`
}

// BatchResult is what one engine invocation produces.
type BatchResult struct {
	Items   []Record  `json:"items"`
	Summary Aggregate `json:"summary"`

	// Degraded marks a batch served entirely from placeholders.
	Degraded bool `json:"degraded,omitempty"`
}

// Report is the aggregator's output over a full text set.
type Report struct {
	Items   []Record  `json:"items"`
	Summary Aggregate `json:"summary"`
}
