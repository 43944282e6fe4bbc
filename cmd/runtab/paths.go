package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// runtabDir is the default state directory name under the user's home.
const runtabDir = ".runtab"

// Paths holds all resolved runtab state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	RuntabHome   string // ~/.runtab or RUNTAB_HOME
	ConfigPath   string // config.toml or RUNTAB_CONFIG
	ManifestPath string // runtab.yaml or RUNTAB_MANIFEST
	HistoryPath  string // history.db or RUNTAB_DB_PATH
}

// ResolvePaths returns all runtab paths, respecting env var overrides.
// Environment variables:
//   - RUNTAB_HOME: base directory for all runtab state (default: ~/.runtab)
//   - RUNTAB_CONFIG: settings file (default: $RUNTAB_HOME/config.toml)
//   - RUNTAB_MANIFEST: command manifest (default: $RUNTAB_HOME/runtab.yaml)
//   - RUNTAB_DB_PATH: run history database (default: $RUNTAB_HOME/history.db)
//
// If RUNTAB_HOME is set, it becomes the base for all default paths.
// Specific env vars (RUNTAB_CONFIG, etc.) override both the default and the
// RUNTAB_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveRuntabHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		RuntabHome:   home,
		ConfigPath:   resolvePathWithEnv("RUNTAB_CONFIG", home, "config.toml"),
		ManifestPath: resolvePathWithEnv("RUNTAB_MANIFEST", home, "runtab.yaml"),
		HistoryPath:  resolvePathWithEnv("RUNTAB_DB_PATH", home, "history.db"),
	}, nil
}

// resolveRuntabHome returns the state directory from RUNTAB_HOME or ~/.runtab.
func resolveRuntabHome() (string, error) {
	if v := os.Getenv("RUNTAB_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, runtabDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}

// ensureHome creates the runtab home directory if needed.
func ensureHome(paths *Paths) error {
	if err := os.MkdirAll(paths.RuntabHome, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", paths.RuntabHome, err)
	}
	return nil
}
