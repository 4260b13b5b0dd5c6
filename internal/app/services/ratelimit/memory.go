package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	window int64
	count  int64
}

// Memory is a process-local Limiter. Buckets for expired windows stay until
// Cleanup runs.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

var _ Limiter = (*Memory)(nil)

// NewMemory creates an in-memory limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock overrides the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// Config returns the effective configuration.
func (m *Memory) Config() Config { return m.cfg }

func (m *Memory) Limit(_ context.Context, identifier string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	windowMs := m.cfg.Window.Milliseconds()
	nowMs := m.now().UnixMilli()
	current := nowMs / windowMs
	limit := int64(m.cfg.Limit)
	reset := time.UnixMilli((current + 1) * windowMs)

	var prevCount, currCount int64
	if b, ok := m.buckets[m.cfg.key(identifier, current-1)]; ok {
		prevCount = b.count
	}
	currKey := m.cfg.key(identifier, current)
	curr, ok := m.buckets[currKey]
	if ok {
		currCount = curr.count
	}

	used := weighted(prevCount, currCount, nowMs, windowMs)
	if used >= limit {
		return Result{Success: false, Limit: m.cfg.Limit, Remaining: 0, Reset: reset}, nil
	}

	if !ok {
		curr = &bucket{window: current}
		m.buckets[currKey] = curr
	}
	curr.count++

	remaining := limit - (used + 1)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Success: true, Limit: m.cfg.Limit, Remaining: int(remaining), Reset: reset}, nil
}

// Cleanup drops buckets that can no longer affect a decision and returns how
// many were removed.
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.now().UnixMilli() / m.cfg.Window.Milliseconds()
	removed := 0
	for key, b := range m.buckets {
		if b.window < current-1 {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of live buckets.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
