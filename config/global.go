package config

import (
	"fmt"
	"time"
)

// DefaultGlobal returns the runtime policy defaults baked into a fresh node:
// a 30s commitment window (spec default), the documented 0.8 decay factor
// and minimum-5 floor for the ideal-distribution model, and a 5s/30s/3
// backoff envelope matching reliability.NewBackoff.
func DefaultGlobal() Global {
	return Global{
		Reliability: Reliability{
			BaseBackoffMs:   5_000,
			MaxBackoffMs:    30_000,
			MaxAttempts:     3,
			SessionTTLSecs:  uint64((24 * time.Hour).Seconds()),
			FramesPerSecond: 50,
			Burst:           100,
		},
		Optimizer: Optimizer{
			DecayFactor: 0.8,
			Minimum:     5,
		},
		Commitment: Commitment{
			DefaultMaxDurationMs: 30_000,
			MinMaxDurationMs:     1_000,
			MaxMaxDurationMs:     300_000,
		},
	}
}

// BackoffBounds parses the reliability policy into a (base, max, attempts)
// triple. reliability.NewBackoff takes no parameters and does not read it.
func (g Global) BackoffBounds() (base, max time.Duration, attempts int, err error) {
	if g.Reliability.BaseBackoffMs <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid global.reliability.BaseBackoffMs: must be positive")
	}
	base = time.Duration(g.Reliability.BaseBackoffMs) * time.Millisecond
	max = time.Duration(g.Reliability.MaxBackoffMs) * time.Millisecond
	attempts = g.Reliability.MaxAttempts
	return base, max, attempts, nil
}

// SessionTTL parses the configured session lifetime into a time.Duration.
func (g Global) SessionTTL() time.Duration {
	return time.Duration(g.Reliability.SessionTTLSecs) * time.Second
}
