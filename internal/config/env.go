package config

import (
	"os"
	"strconv"
)

// FromEnv overlays RANGEFLOW_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("RANGEFLOW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RANGEFLOW_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RANGEFLOW_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("RANGEFLOW_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("RANGEFLOW_SCAN_LEASE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scan.LeaseMs = n
		}
	}
	if v := os.Getenv("RANGEFLOW_SCAN_MAX_RESTARTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scan.MaxRestarts = n
		}
	}
	if v := os.Getenv("RANGEFLOW_SCAN_FETCH_MODE"); v != "" {
		cfg.Scan.FetchMode = v
	}
	if v := os.Getenv("RANGEFLOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RANGEFLOW_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
