// Package ratelimit implements fixed-window request counting per key.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the window a hit landed in.
type Result struct {
	Limit     int
	Count     int
	Remaining int
	Reset     time.Time
}

// Allowed is false once the window's count exceeds the limit.
func (r Result) Allowed() bool {
	return r.Count <= r.Limit
}

type Limiter interface {
	// Hit counts one request for key and reports the resulting window state.
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

func newResult(limit, count int, reset time.Time) Result {
	return Result{
		Limit:     limit,
		Count:     count,
		Remaining: max(0, limit-count),
		Reset:     reset,
	}
}
