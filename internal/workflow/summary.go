package workflow

import (
	"fmt"
	"strings"

	"github.com/brandpulse-ai/brandpulse/internal/sentiment"
)

// Summarize renders a run's final report text. It is a pure function
// over the run's slot snapshot and the sentiment report: no I/O, no
// clock, same inputs always produce the same text, and the result is
// never empty.
func Summarize(run *Run, report *sentiment.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brand report: %s\n", run.Subject)
	fmt.Fprintf(&b, "Run %s\n\n", run.ID)

	b.WriteString("Sources:\n")
	names := run.SlotNames()
	if len(names) == 0 {
		b.WriteString("  (no sources gathered)\n")
	}
	for _, name := range names {
		slot, _ := run.Slot(name)
		if slot.Failed() {
			fmt.Fprintf(&b, "  %s: FAILED (%s)\n", name, slot.Err)
		} else {
			fmt.Fprintf(&b, "  %s: ok\n", name)
		}
	}

	b.WriteString("\nSentiment:\n")
	if report == nil || len(report.Items) == 0 {
		b.WriteString("  no items analyzed\n")
		return b.String()
	}

	agg := report.Summary
	fmt.Fprintf(&b, "  items analyzed: %d\n", len(report.Items))
	fmt.Fprintf(&b, "  dominant: %s\n", agg.Dominant)
	fmt.Fprintf(&b, "  mean score: %.2f (confidence %.2f)\n", agg.MeanScore, agg.MeanConfidence)
	fmt.Fprintf(&b, "  distribution: positive=%d negative=%d neutral=%d mixed=%d\n",
		agg.Distribution[sentiment.CategoryPositive],
		agg.Distribution[sentiment.CategoryNegative],
		agg.Distribution[sentiment.CategoryNeutral],
		agg.Distribution[sentiment.CategoryMixed],
	)

	if degraded := countDegraded(report.Items); degraded > 0 {
		fmt.Fprintf(&b, "  degraded items: %d (provider fallbacks exhausted)\n", degraded)
	}

	if len(agg.TopAspects) > 0 {
		b.WriteString("\nTop aspects:\n")
		for _, aspect := range agg.TopAspects {
			fmt.Fprintf(&b, "  %s: %d mentions, mostly %s\n", aspect.Aspect, aspect.Mentions, aspect.Sentiment)
		}
	}

	if agg.Implications != "" {
		fmt.Fprintf(&b, "\nImplications: %s\n", agg.Implications)
	}

	return b.String()
}

func countDegraded(items []sentiment.Record) int {
	n := 0
	for _, item := range items {
		if item.Degraded {
			n++
		}
	}
	return n
}
