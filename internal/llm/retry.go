package llm

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy retries an operation on transient adapter errors with
// exponential backoff.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry, doubled each time
	// Default: 1 second
	BaseDelay time.Duration

	// Sleep is replaceable in tests. nil means time.Sleep with
	// context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, fails with a non-retryable error, or
// attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		slog.Warn("transient adapter error, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr.Error(),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}

	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
