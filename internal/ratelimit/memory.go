package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count int
	reset time.Time
}

// Memory keeps windows in process memory. Counts are not shared between
// instances; use Redis when running more than one.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *Memory) Hit(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{reset: now.Add(window)}
		m.buckets[key] = b
	}
	if now.After(b.reset) {
		b.count = 0
		b.reset = now.Add(window)
	}
	b.count++

	return newResult(limit, b.count, b.reset), nil
}

// Prune drops windows that have already ended and returns how many it removed.
func (m *Memory) Prune(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, b := range m.buckets {
		if now.After(b.reset) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
