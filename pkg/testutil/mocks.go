// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
	"github.com/R3E-Network/chirp/internal/app/realtime"
	"github.com/R3E-Network/chirp/internal/app/services/ratelimit"
)

// MockLimiter is a ratelimit.Limiter with scripted answers.
type MockLimiter struct {
	mu    sync.Mutex
	deny  map[string]bool
	err   error
	calls []string
}

// NewMockLimiter creates a limiter that allows everything.
func NewMockLimiter() *MockLimiter {
	return &MockLimiter{deny: make(map[string]bool)}
}

// Deny makes every later call for identifier fail the limit.
func (m *MockLimiter) Deny(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deny[identifier] = true
}

// FailWith makes every later call return err.
func (m *MockLimiter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the identifiers checked so far.
func (m *MockLimiter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Limit implements ratelimit.Limiter.
func (m *MockLimiter) Limit(_ context.Context, identifier string) (ratelimit.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, identifier)
	if m.err != nil {
		return ratelimit.Result{}, m.err
	}
	reset := time.Now().Add(30 * time.Second)
	if m.deny[identifier] {
		return ratelimit.Result{Success: false, Limit: ratelimit.DefaultLimit, Reset: reset}, nil
	}
	return ratelimit.Result{Success: true, Limit: ratelimit.DefaultLimit, Remaining: ratelimit.DefaultLimit - 1, Reset: reset}, nil
}

// MockPublisher records published realtime events.
type MockPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

// Publish implements the services' publisher interface.
func (m *MockPublisher) Publish(ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]realtime.Event(nil), m.events...)
}

// Authors returns a small fixed cast of users for directory fakes.
func Authors() []author.Author {
	created := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	return []author.Author{
		{ID: "user_alice", Username: "alice", ProfileImageURL: "https://img.example/alice.png", CreatedAt: created},
		{ID: "user_bob", Username: "bob", ProfileImageURL: "https://img.example/bob.png", CreatedAt: created},
	}
}
