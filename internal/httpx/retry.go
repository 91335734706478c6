package httpx

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/amehdaoui/dukkan/internal/errs"
)

// RetryWithBackoff calls fn, retrying transient failures (network trouble,
// timeouts, 5xx, 429) up to maxRetries times with delay baseDelay * 2^attempt.
// Auth and other 4xx failures are final and returned immediately. Nothing in
// the transport retries automatically; call sites opt in with this helper.
func RetryWithBackoff(ctx context.Context, fn func(ctx context.Context) error, maxRetries uint64, baseDelay time.Duration) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errs.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
