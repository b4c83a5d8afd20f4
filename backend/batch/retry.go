package batch

import (
	"context"
	"errors"
	"time"

	"github.com/luxury-yacht/driftcheck/backend/internal/config"
)

// retryOperation runs fn up to attempts times with exponential backoff starting at
// baseDelay and capped at config.JobRetryMaxDelay. ErrInvalidSource is returned at once.
func retryOperation[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errors.New("operation not provided")
	}
	if attempts < 1 {
		attempts = 1
	}
	delay := baseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if i == attempts-1 || errors.Is(err, ErrInvalidSource) {
			return zero, err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > config.JobRetryMaxDelay {
			delay = config.JobRetryMaxDelay
		}
	}
}
