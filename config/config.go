package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"tokenmesh/crypto"
)

// Config is the on-disk node configuration for a token-exchange participant:
// its identity key, where it keeps token/attestation state, which transport
// it listens on, and the runtime policy bundle validated by ValidateConfig.
type Config struct {
	ListenAddress string   `toml:"ListenAddress"`
	DataDir       string   `toml:"DataDir"`
	NodeKey       string   `toml:"NodeKey"`
	KeystorePath  string   `toml:"KeystorePath"`
	KnownParties  []string `toml:"KnownParties"`

	Global Global `toml:"Global"`
}

// LoadNodeKey resolves the node's identity key: from the encrypted v3
// keystore at KeystorePath if one is configured, otherwise from the plain
// hex NodeKey field written by Load/createDefault.
func (c *Config) LoadNodeKey(keystorePassphrase string) (*crypto.PrivateKey, error) {
	if c.KeystorePath != "" {
		return crypto.LoadFromKeystore(c.KeystorePath, keystorePassphrase)
	}
	raw, err := hex.DecodeString(c.NodeKey)
	if err != nil {
		return nil, err
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// Load loads the configuration from the given path, writing a fresh default
// file (with a newly generated node key) the first time it is invoked.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.NodeKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.NodeKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}

	if err := ValidateConfig(cfg.Global); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":7701",
		DataDir:       "./tokenmesh-data",
		NodeKey:       hex.EncodeToString(key.Bytes()),
		KnownParties:  []string{},
		Global:        DefaultGlobal(),
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
