package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory for the host OS,
// preferring standard locations and falling back to a dotdir in the user's
// home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "rangeflow")
	}
	if isDir("/var/lib") {
		return "/var/lib/rangeflow"
	}
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Rangeflow")
	}
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Rangeflow")
	}
	return filepath.Join(homeDir, ".rangeflow")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
