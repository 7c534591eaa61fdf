package resolver

import (
	"context"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/provider"
)

// resolveWithRetry calls a tier provider with retry on transient failures.
// The rate limiter gates every attempt before the call goes out, including
// the first. Backoff doubles per attempt from BackoffBase up to BackoffMax;
// a provider retry-after hint longer than the computed backoff wins.
// Permanent failures abort immediately.
func (r *Resolver) resolveWithRetry(ctx context.Context, p provider.Provider, query domain.Query) ([]domain.Candidate, error) {
	var lastErr error

	for attempt := 0; attempt < r.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			if hint := errors.RetryAfterHint(lastErr); hint > delay {
				delay = hint
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, p.Name()); err != nil {
				return nil, err
			}
		}

		candidates, err := p.Resolve(ctx, query)
		if err == nil {
			return candidates, nil
		}
		lastErr = err

		if !errors.IsTransient(err) {
			return nil, err
		}
		r.logger.WithError(err).Warn("provider attempt failed",
			"provider", p.Name(),
			"attempt", attempt+1,
			"max_attempts", r.opts.RetryAttempts,
		)
	}

	return nil, lastErr
}

// backoff returns the exponential delay before the given attempt (attempt 1
// waits one base period).
func (r *Resolver) backoff(attempt int) time.Duration {
	delay := r.opts.BackoffBase << (attempt - 1)
	if delay > r.opts.BackoffMax || delay <= 0 {
		delay = r.opts.BackoffMax
	}
	return delay
}
