package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// slidingWindowScript returns the remaining budget after counting the request,
// or -1 when the request is rejected and nothing was counted.
var slidingWindowScript = redis.NewScript(`
local currentKey  = KEYS[1]
local previousKey = KEYS[2]
local tokens      = tonumber(ARGV[1])
local now         = tonumber(ARGV[2])
local window      = tonumber(ARGV[3])
local incrementBy = tonumber(ARGV[4])

local requestsInCurrentWindow = redis.call("GET", currentKey)
if requestsInCurrentWindow == false then
  requestsInCurrentWindow = 0
end

local requestsInPreviousWindow = redis.call("GET", previousKey)
if requestsInPreviousWindow == false then
  requestsInPreviousWindow = 0
end

local percentageInCurrent = (now % window) / window
requestsInPreviousWindow = math.floor((1 - percentageInCurrent) * requestsInPreviousWindow)
if requestsInPreviousWindow + requestsInCurrentWindow >= tokens then
  return -1
end

local newValue = redis.call("INCRBY", currentKey, incrementBy)
if newValue == incrementBy then
  redis.call("PEXPIRE", currentKey, window * 2 + 1000)
end
return tokens - (newValue + requestsInPreviousWindow)
`)

// Redis is a Limiter shared across processes. Each decision is one atomic
// script call.
type Redis struct {
	client redis.UniversalClient
	cfg    Config
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

// NewRedis creates a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg.withDefaults(), now: time.Now}
}

// Config returns the effective configuration.
func (r *Redis) Config() Config { return r.cfg }

func (r *Redis) Limit(ctx context.Context, identifier string) (Result, error) {
	windowMs := r.cfg.Window.Milliseconds()
	nowMs := r.now().UnixMilli()
	current := nowMs / windowMs
	reset := time.UnixMilli((current + 1) * windowMs)

	keys := []string{r.cfg.key(identifier, current), r.cfg.key(identifier, current-1)}
	remaining, err := slidingWindowScript.Run(ctx, r.client, keys, r.cfg.Limit, nowMs, windowMs, 1).Int64()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if remaining < 0 {
		return Result{Success: false, Limit: r.cfg.Limit, Remaining: 0, Reset: reset}, nil
	}
	return Result{Success: true, Limit: r.cfg.Limit, Remaining: int(remaining), Reset: reset}, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
