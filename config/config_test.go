package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWithGeneratedKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.NodeKey)
	require.Equal(t, ":7701", cfg.ListenAddress)
	require.Equal(t, DefaultGlobal(), cfg.Global)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLoadPreservesExistingNodeKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := Load(path)
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first.NodeKey, second.NodeKey)
}

func TestLoadParsesKnownParties(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:7701"
DataDir = "./data"
NodeKey = "` + sampleHexKey + `"
KnownParties = ["nhb1partya", "nhb1partyb"]

[Global.Reliability]
BaseBackoffMs = 5000
MaxBackoffMs = 30000
MaxAttempts = 3
SessionTTLSecs = 86400
FramesPerSecond = 50
Burst = 100

[Global.Optimizer]
DecayFactor = 0.8
Minimum = 5

[Global.Commitment]
DefaultMaxDurationMs = 30000
MinMaxDurationMs = 1000
MaxMaxDurationMs = 300000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"nhb1partya", "nhb1partyb"}, cfg.KnownParties)
	require.Equal(t, int64(30_000), cfg.Global.Commitment.DefaultMaxDurationMs)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:7701"
DataDir = "./data"
NodeKey = "` + sampleHexKey + `"

[Global.Reliability]
BaseBackoffMs = 0
MaxBackoffMs = 30000
MaxAttempts = 3
SessionTTLSecs = 86400

[Global.Optimizer]
DecayFactor = 0.8
Minimum = 5

[Global.Commitment]
DefaultMaxDurationMs = 30000
MinMaxDurationMs = 1000
MaxMaxDurationMs = 300000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateConfigBounds(t *testing.T) {
	valid := DefaultGlobal()
	require.NoError(t, ValidateConfig(valid))

	badCommitment := valid
	badCommitment.Commitment.DefaultMaxDurationMs = 999_999_999
	require.Error(t, ValidateConfig(badCommitment))

	badOptimizer := valid
	badOptimizer.Optimizer.DecayFactor = 1.5
	require.Error(t, ValidateConfig(badOptimizer))

	badReliability := valid
	badReliability.Reliability.MaxAttempts = 0
	require.Error(t, ValidateConfig(badReliability))
}

// sampleHexKey fills the NodeKey field of the TOML fixtures above so they stay
// deterministic. Load stores NodeKey as a string without decoding it, so the
// value (63 hex digits, not a decodable 32-byte key) is never parsed here.
const sampleHexKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362b1"
