package config

import "fmt"

func ValidateConfig(g Global) error {
	if g.Reliability.BaseBackoffMs <= 0 || g.Reliability.MaxBackoffMs < g.Reliability.BaseBackoffMs {
		return fmt.Errorf("reliability: base_backoff_ms > max_backoff_ms or zero")
	}
	if g.Reliability.MaxAttempts <= 0 {
		return fmt.Errorf("reliability: max_attempts <= 0")
	}
	if g.Reliability.SessionTTLSecs == 0 {
		return fmt.Errorf("reliability: session_ttl_secs == 0")
	}
	if g.Optimizer.DecayFactor <= 0 || g.Optimizer.DecayFactor > 1 {
		return fmt.Errorf("optimizer: decay_factor must be in (0, 1]")
	}
	if g.Optimizer.Minimum < 0 {
		return fmt.Errorf("optimizer: minimum < 0")
	}
	if g.Commitment.MinMaxDurationMs <= 0 || g.Commitment.MinMaxDurationMs > g.Commitment.MaxMaxDurationMs {
		return fmt.Errorf("commitment: min_max_duration_ms > max_max_duration_ms or zero")
	}
	if g.Commitment.DefaultMaxDurationMs < g.Commitment.MinMaxDurationMs || g.Commitment.DefaultMaxDurationMs > g.Commitment.MaxMaxDurationMs {
		return fmt.Errorf("commitment: default_max_duration_ms out of [min, max] bounds")
	}
	return nil
}
