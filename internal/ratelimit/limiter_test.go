package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAllow(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow(ctx, "u1", 3, time.Minute); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	if ok, _ := m.Allow(ctx, "u1", 3, time.Minute); ok {
		t.Fatal("fourth request should be limited")
	}
	if ok, _ := m.Allow(ctx, "u2", 3, time.Minute); !ok {
		t.Fatal("u2 has its own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := m.Allow(ctx, "u1", 3, time.Minute); !ok {
		t.Fatal("new window should reset the count")
	}
}

func TestMemoryEvictsExpiredCounters(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		m.Allow(ctx, k, 10, time.Minute)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 counters, got %d", m.Len())
	}

	now = now.Add(2 * time.Minute)
	m.Allow(ctx, "d", 10, time.Minute)
	if m.Len() != 1 {
		t.Fatalf("expired counters should be evicted, got %d", m.Len())
	}
}
