package call

import (
	"context"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// RetryPolicy retries an operation on transient platform failures.
// Only 5xx API errors are retried; 4xx responses and transport errors are
// returned to the caller unchanged on the first attempt.
type RetryPolicy struct {
	MaxAttempts int
	BackoffUnit time.Duration

	// Sleep is swappable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// DefaultRetryPolicy matches the platform guidance of three attempts with a
// one second backoff unit.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffUnit: time.Second,
	}
}

// Do runs op up to MaxAttempts times. The wait before attempt n+1 grows
// linearly: BackoffUnit * n. The last error is returned when every attempt
// fails.
func (p RetryPolicy) Do(ctx context.Context, label string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		apiErr, ok := adapterhttp.AsAPIError(lastErr)
		if !ok || !apiErr.IsServerError() {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		wait := p.BackoffUnit * time.Duration(attempt)
		logger.Base().Warn("Transient platform error, retrying",
			zap.String("op", label),
			zap.Int("attempt", attempt),
			zap.Int("status", apiErr.StatusCode),
			zap.Duration("wait", wait))
		sleep(wait)
	}

	return lastErr
}
