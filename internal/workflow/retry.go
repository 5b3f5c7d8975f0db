package workflow

import (
	"math"
	"time"
)

// RetryPolicy defines exponential backoff for gathering tasks.
type RetryPolicy struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	Multiplier   float64       `json:"multiplier"`
	MaxDelay     time.Duration `json:"max_delay"`
}

// DefaultRetryPolicy returns the standard gathering policy: five
// attempts starting at two seconds, doubling, capped at one minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

// Delay calculates the backoff before retry attempt n, where n counts
// failures so far (first retry is attempt 1).
func (rp RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt-1)))
	if rp.MaxDelay > 0 && delay > rp.MaxDelay {
		return rp.MaxDelay
	}
	return delay
}
