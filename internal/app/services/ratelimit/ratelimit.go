// Package ratelimit implements a sliding window limiter keyed by user.
//
// The window is approximated from two fixed windows: the count of the
// previous window is weighted by how much of it still overlaps the sliding
// window and added to the count of the current one.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	DefaultLimit  = 5
	DefaultWindow = time.Minute
	DefaultPrefix = "@upstash/ratelimit"
)

// Result describes one limit decision.
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	// Reset is when the current fixed window ends.
	Reset time.Time
}

// RetryAfter is the whole number of seconds until Reset, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.Reset.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter counts a request for identifier and reports whether it is allowed.
type Limiter interface {
	Limit(ctx context.Context, identifier string) (Result, error)
}

// Config sets the window shape. Zero fields take the defaults.
type Config struct {
	Limit  int
	Window time.Duration
	Prefix string
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Window < time.Millisecond {
		c.Window = DefaultWindow
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	return c
}

// WindowLabel renders the window for error details, e.g. "1m0s" becomes "1m".
func (c Config) WindowLabel() string {
	c = c.withDefaults()
	if c.Window%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(c.Window/time.Minute))
	}
	if c.Window%time.Second == 0 {
		return fmt.Sprintf("%ds", int(c.Window/time.Second))
	}
	return c.Window.String()
}

func (c Config) key(identifier string, window int64) string {
	return fmt.Sprintf("%s:%s:%d", c.Prefix, identifier, window)
}

// weighted returns the sliding count given both fixed window counts and the
// position inside the current window.
func weighted(previous, current, nowMs, windowMs int64) int64 {
	elapsed := float64(nowMs%windowMs) / float64(windowMs)
	return int64(math.Floor((1-elapsed)*float64(previous))) + current
}
