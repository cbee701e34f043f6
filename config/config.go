// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultFileName is the vault file created under the user config directory.
const DefaultFileName = "otpguard.enc"

var ErrParsingConfig = errors.New("config: failed to parse environment")

type Config struct {
	// VaultPath overrides the vault location. Empty means
	// $UserConfigDir/otpguard.enc.
	VaultPath      string        `env:"OTPGUARD_VAULT_PATH"`
	LogLevel       string        `env:"OTPGUARD_LOG_LEVEL" envDefault:"warn"`
	LockRetries    uint64        `env:"OTPGUARD_LOCK_RETRIES" envDefault:"0"`
	LockRetryDelay time.Duration `env:"OTPGUARD_LOCK_RETRY_DELAY" envDefault:"200ms"`
	ClipboardTTL   time.Duration `env:"OTPGUARD_CLIPBOARD_TTL" envDefault:"30s"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if cfg.VaultPath == "" {
		path, err := DefaultVaultPath()
		if err != nil {
			return Config{}, err
		}
		cfg.VaultPath = path
	}
	return cfg, nil
}

// DefaultVaultPath is the per-user location of the vault file.
func DefaultVaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}
