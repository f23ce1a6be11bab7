package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maxAttempts bounds the retry loop for ExtractTrade and GenerateChatReply.
// Classification and the cheap summarizers are single-shot: their safe
// defaults are cheaper than a retry.
const maxAttempts = 3

// sleepFunc suspends for a backoff delay. Injected so tests can count delays
// instead of waiting for them.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext waits for d or until the context is cancelled, whichever
// comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs fn up to maxAttempts times. Only errors the transient
// predicate accepts (upstream "service unavailable" conditions) are retried,
// with exponential backoff of 2^attempt seconds: 1s, 2s, 4s. Any other error,
// or exhaustion, returns the last error — the caller converts it to its
// documented fallback.
func withRetry[T any](ctx context.Context, logger *zap.Logger, op string, transient func(error) bool, sleep sleepFunc, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !transient(err) || attempt == maxAttempts-1 {
			break
		}
		delay := time.Duration(1<<attempt) * time.Second
		logger.Warn("transient upstream error, backing off",
			zap.String("operation", op),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
	return zero, lastErr
}
