package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// compactDurationExpr matches the short duration form used by monitor
// config: a positive integer followed by one unit letter.
var compactDurationExpr = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseCompactDuration parses durations like "30s", "15m", "2h", "1d".
// Anything else, including bare numbers and unknown units, is a config
// error.
func ParseCompactDuration(s string) (time.Duration, error) {
	m := compactDurationExpr.FindStringSubmatch(s)
	if m == nil {
		return 0, types.NewError(types.CONFIG_INVALID_DURATION,
			fmt.Sprintf("invalid duration %q: want <number><s|m|h|d>", s))
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, types.WrapError(types.CONFIG_INVALID_DURATION,
			fmt.Sprintf("invalid duration %q", s), err)
	}

	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, types.NewError(types.CONFIG_INVALID_DURATION, fmt.Sprintf("invalid duration %q", s))
}

// MonitorConfig schedules repeated runs: one run every Interval until
// Total has elapsed. Both use the compact duration form.
type MonitorConfig struct {
	Interval string `json:"interval"`
	Total    string `json:"total"`
}

// Monitor re-runs the input on a fixed interval until the total window
// elapses or the context is cancelled. Both durations are validated
// before any run is scheduled, so a malformed config never triggers a
// partial monitoring session.
func (o *Orchestrator) Monitor(ctx context.Context, input Input, cfg MonitorConfig) ([]*Result, error) {
	interval, err := ParseCompactDuration(cfg.Interval)
	if err != nil {
		return nil, err
	}
	total, err := ParseCompactDuration(cfg.Total)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "starting monitoring session",
		"subject", input.Subject,
		"interval", interval,
		"total", total,
	)

	deadline := o.clock.Now().Add(total)
	var results []*Result

	for {
		result, err := o.Run(ctx, input)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if !o.clock.Now().Add(interval).Before(deadline) {
			o.logger.InfoContext(ctx, "monitoring session complete", "runs", len(results))
			return results, nil
		}
		if err := o.pause(ctx, interval); err != nil {
			return results, o.cancelled(err)
		}
	}
}
