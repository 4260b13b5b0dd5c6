package ratelimit

import (
	"context"
	"time"

	"github.com/R3E-Network/chirp/internal/app/metrics"
	"github.com/R3E-Network/chirp/internal/errors"
)

// Enforce counts one request for identifier against limiter. A rejected
// request becomes a TOO_MANY_REQUESTS error carrying retry_after seconds.
// A nil limiter allows everything.
func Enforce(ctx context.Context, limiter Limiter, identifier, action string) error {
	if limiter == nil {
		return nil
	}
	res, err := limiter.Limit(ctx, identifier)
	if err != nil {
		return errors.Internal("Rate limiter unavailable", err)
	}
	if res.Success {
		return nil
	}

	metrics.RecordRateLimited(action)
	window := DefaultWindow.String()
	if c, ok := limiter.(interface{ Config() Config }); ok {
		window = c.Config().WindowLabel()
	}
	return errors.RateLimitExceeded(res.Limit, window).
		WithDetails("retry_after", res.RetryAfter(time.Now()))
}
