package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudx-io/proxypilot/core"
)

// Retry wraps an Oracle with bounded exponential backoff. Each attempt runs
// under its own timeout; sleeps abort as soon as the caller's context does.
type Retry struct {
	inner Oracle

	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration

	log   zerolog.Logger
	sleep func(context.Context, time.Duration) error
}

// NewRetry wraps inner with the standard retry policy: 3 attempts,
// exponential backoff starting at 1s and capped at 10s.
func NewRetry(inner Oracle, log zerolog.Logger) *Retry {
	return &Retry{
		inner:          inner,
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 30 * time.Second,
		log:            log.With().Str("component", "oracle-retry").Logger(),
		sleep:          sleepContext,
	}
}

// Propose tries the inner oracle until it succeeds or attempts run out.
// The last error is returned wrapped; it satisfies errors.Is against the
// inner oracle's sentinel.
func (r *Retry) Propose(ctx context.Context, req Request) (core.StrategyDecision, error) {
	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.AttemptTimeout)
		}

		decision, err := r.inner.Propose(attemptCtx, req)
		cancel()
		if err == nil {
			return decision, nil
		}
		lastErr = err

		if attempt == r.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return core.StrategyDecision{}, fmt.Errorf("oracle aborted: %w", ctx.Err())
		}

		delay := r.backoff(attempt)
		r.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("oracle attempt failed")
		if err := r.sleep(ctx, delay); err != nil {
			return core.StrategyDecision{}, fmt.Errorf("oracle aborted: %w", err)
		}
	}

	return core.StrategyDecision{}, fmt.Errorf("oracle failed after %d attempts: %w", r.MaxAttempts, lastErr)
}

// backoff doubles the base delay per completed attempt, capped at MaxDelay.
func (r *Retry) backoff(attempt int) time.Duration {
	delay := r.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if delay > r.MaxDelay {
		return r.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
