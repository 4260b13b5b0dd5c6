package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/chirp/internal/app/realtime"
)

func TestMockLimiter(t *testing.T) {
	l := NewMockLimiter()
	if res, _ := l.Limit(context.Background(), "a"); !res.Success {
		t.Fatal("expected allow by default")
	}
	l.Deny("a")
	if res, _ := l.Limit(context.Background(), "a"); res.Success {
		t.Fatal("expected deny")
	}
	l.FailWith(errors.New("down"))
	if _, err := l.Limit(context.Background(), "b"); err == nil {
		t.Fatal("expected error")
	}
	if got := len(l.Calls()); got != 3 {
		t.Fatalf("calls = %d", got)
	}
}

func TestMockPublisher(t *testing.T) {
	var p MockPublisher
	p.Publish(realtime.Event{Type: realtime.EventPostCreated})
	if evs := p.Events(); len(evs) != 1 || evs[0].Type != realtime.EventPostCreated {
		t.Fatalf("events = %+v", evs)
	}
}
