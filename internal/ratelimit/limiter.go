// Package ratelimit throttles outbound calls to the OCR/LLM provider per
// key and time window. The pipeline only consumes the Limiter interface;
// the in-memory implementation covers single-process deployments.
package ratelimit

import (
	"context"
	"time"
)

// Policy bounds how many calls a key may make inside a window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is consulted before every provider call.
type Limiter interface {
	Check(ctx context.Context, key string, p Policy) (Decision, error)
}
