package media

import (
	"context"
	"time"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

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

// withRetry runs op up to attempts times, sleeping baseDelay*2^(n-1) between
// failures. Cancellation is observed between attempts only; an in-flight op
// runs to its own completion or timeout. The last failure is returned when
// all attempts are exhausted.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, sleep sleepFunc, op func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, baseDelay<<(attempt-1)); sleepErr != nil {
			break
		}
	}
	return err
}
