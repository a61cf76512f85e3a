// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "assess-speaking"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the SQLite history.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "history.db")
}

// DefaultLogDir holds reports and recorded responses.
func DefaultLogDir() string {
	return filepath.Join(XDGDataHome(), appName, "logs")
}

// DefaultPromptsPath returns the default prompt catalog.
func DefaultPromptsPath() string {
	return filepath.Join(XDGConfigHome(), appName, "prompts.yaml")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
