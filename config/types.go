package config

// Reliability bounds the local recovery and session-resumption knobs used by
// the reliability package's retry/backoff and session manager.
type Reliability struct {
	BaseBackoffMs   int64
	MaxBackoffMs    int64
	MaxAttempts     int
	SessionTTLSecs  uint64
	FramesPerSecond float64
	Burst           int
}

// Optimizer bounds the denomination vector clock's ideal-distribution model.
type Optimizer struct {
	DecayFactor float64
	Minimum     int64
}

// Commitment bounds the four-packet protocol's timing envelope.
type Commitment struct {
	DefaultMaxDurationMs int64
	MinMaxDurationMs     int64
	MaxMaxDurationMs     int64
}

// Global bundles the runtime configuration values enforced by ValidateConfig.
type Global struct {
	Reliability Reliability
	Optimizer   Optimizer
	Commitment  Commitment
}
