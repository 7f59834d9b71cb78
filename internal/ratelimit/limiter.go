package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether another request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type counter struct {
	count   int
	resetAt time.Time
}

// Memory is a fixed-window limiter for a single process. Counters whose
// window has passed are evicted, so memory stays bounded by active keys.
type Memory struct {
	mu        sync.Mutex
	counters  map[string]*counter
	now       func() time.Time
	lastSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[string]*counter), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= window {
		m.sweep(now)
	}

	c, ok := m.counters[key]
	if !ok || !now.Before(c.resetAt) {
		m.counters[key] = &counter{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	if c.count >= limit {
		return false, nil
	}
	c.count++
	return true, nil
}

func (m *Memory) sweep(now time.Time) {
	for k, c := range m.counters {
		if !now.Before(c.resetAt) {
			delete(m.counters, k)
		}
	}
	m.lastSweep = now
}

// Len reports how many counters are tracked.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
