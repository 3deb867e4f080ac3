package reliability

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer bounds the rate at which frames are sent on a single channel, so a
// burst of retries from one transaction cannot starve others sharing the
// same transport.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows framesPerSecond sustained, bursting up to burst frames.
func NewPacer(framesPerSecond float64, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(framesPerSecond), burst)}
}

// Wait blocks until a frame may be sent, or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Allow reports, without blocking, whether a frame may be sent right now.
func (p *Pacer) Allow() bool {
	if p == nil || p.limiter == nil {
		return true
	}
	return p.limiter.Allow()
}
