package reliability

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Local recovery defaults (spec §7): base 5s, cap 30s, at most 3 attempts.
const (
	baseBackoff    = 5 * time.Second
	capBackoff     = 30 * time.Second
	maxAttempts    = 3
)

// NewBackoff builds the exponential backoff policy frame retransmission
// uses, wrapped so it gives up after maxAttempts tries rather than running
// indefinitely.
func NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseBackoff
	b.MaxInterval = capBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

// SendFunc performs one delivery attempt; a non-nil error is retried.
type SendFunc func(ctx context.Context) error

// Retry runs send under NewBackoff's policy, retrying on failure up to
// maxAttempts total attempts, stopping early if ctx is cancelled.
func Retry(ctx context.Context, send SendFunc) error {
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return send(ctx)
	}, backoff.WithContext(NewBackoff(), ctx))
}
