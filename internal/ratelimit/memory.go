package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window counter keyed by caller-supplied strings.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string, p Policy) (Decision, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= p.Window {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= p.Limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(p.Window).Sub(now),
		}, nil
	}

	w.count++
	return Decision{Allowed: true, Remaining: p.Limit - w.count}, nil
}
