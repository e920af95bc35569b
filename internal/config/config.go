package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ScanDefaults captures baseline cursor tunables applied when a scan request
// does not override them.
type ScanDefaults struct {
	// LeaseMs bounds how long one snapshot serves a scan before refresh.
	LeaseMs int `json:"leaseMs"`
	// MaxRestarts caps consecutive snapshot refreshes without progress.
	MaxRestarts int `json:"maxRestarts"`
	// FetchMode is the read-ahead hint: default|single|small|large.
	FetchMode string `json:"fetchMode"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir is the Pebble store directory; empty means the OS default.
	DataDir string `json:"dataDir"`
	// HTTPAddr is the server listen address.
	HTTPAddr string `json:"httpAddr"`
	// Fsync is the WAL sync policy: always|interval|never.
	Fsync string `json:"fsync"`
	// FsyncIntervalMs is the group-commit window when Fsync=interval.
	FsyncIntervalMs int          `json:"fsyncIntervalMs"`
	Scan            ScanDefaults `json:"scan"`
	Log             LogConfig    `json:"log"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		Scan: ScanDefaults{
			LeaseMs:     5000,
			MaxRestarts: 3,
			FetchMode:   "default",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Lease returns the scan lease as a duration.
func (s ScanDefaults) Lease() time.Duration {
	return time.Duration(s.LeaseMs) * time.Millisecond
}

// Load reads configuration from a JSON file. An empty path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
