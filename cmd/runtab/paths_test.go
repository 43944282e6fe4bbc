package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePaths_Defaults(t *testing.T) {
	// Clear all env overrides.
	t.Setenv("RUNTAB_HOME", "")
	t.Setenv("RUNTAB_CONFIG", "")
	t.Setenv("RUNTAB_MANIFEST", "")
	t.Setenv("RUNTAB_DB_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("get home dir: %v", err)
	}

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}

	expectedBase := filepath.Join(home, runtabDir)

	if paths.RuntabHome != expectedBase {
		t.Errorf("RuntabHome = %q, want %q", paths.RuntabHome, expectedBase)
	}
	if paths.ConfigPath != filepath.Join(expectedBase, "config.toml") {
		t.Errorf("ConfigPath = %q, want %q", paths.ConfigPath, filepath.Join(expectedBase, "config.toml"))
	}
	if paths.ManifestPath != filepath.Join(expectedBase, "runtab.yaml") {
		t.Errorf("ManifestPath = %q, want %q", paths.ManifestPath, filepath.Join(expectedBase, "runtab.yaml"))
	}
	if paths.HistoryPath != filepath.Join(expectedBase, "history.db") {
		t.Errorf("HistoryPath = %q, want %q", paths.HistoryPath, filepath.Join(expectedBase, "history.db"))
	}
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	tmpDir := t.TempDir()
	custom := filepath.Join(tmpDir, "custom-runtab")

	t.Setenv("RUNTAB_HOME", custom)
	t.Setenv("RUNTAB_CONFIG", "")
	t.Setenv("RUNTAB_MANIFEST", "")
	t.Setenv("RUNTAB_DB_PATH", "")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}

	if paths.RuntabHome != custom {
		t.Errorf("RuntabHome = %q, want %q", paths.RuntabHome, custom)
	}
	if paths.HistoryPath != filepath.Join(custom, "history.db") {
		t.Errorf("HistoryPath = %q, want under RUNTAB_HOME", paths.HistoryPath)
	}
}

func TestResolvePaths_SpecificOverridesWin(t *testing.T) {
	tmpDir := t.TempDir()

	t.Setenv("RUNTAB_HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("RUNTAB_CONFIG", filepath.Join(tmpDir, "my-config.toml"))
	t.Setenv("RUNTAB_MANIFEST", filepath.Join(tmpDir, "my-manifest.yaml"))
	t.Setenv("RUNTAB_DB_PATH", filepath.Join(tmpDir, "my-history.db"))

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths() error: %v", err)
	}

	if paths.ConfigPath != filepath.Join(tmpDir, "my-config.toml") {
		t.Errorf("ConfigPath = %q, want the RUNTAB_CONFIG override", paths.ConfigPath)
	}
	if paths.ManifestPath != filepath.Join(tmpDir, "my-manifest.yaml") {
		t.Errorf("ManifestPath = %q, want the RUNTAB_MANIFEST override", paths.ManifestPath)
	}
	if paths.HistoryPath != filepath.Join(tmpDir, "my-history.db") {
		t.Errorf("HistoryPath = %q, want the RUNTAB_DB_PATH override", paths.HistoryPath)
	}
}

func TestEnsureHome(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{RuntabHome: filepath.Join(tmpDir, "nested", "runtab")}

	if err := ensureHome(paths); err != nil {
		t.Fatalf("ensureHome() error: %v", err)
	}
	info, err := os.Stat(paths.RuntabHome)
	if err != nil {
		t.Fatalf("stat created home: %v", err)
	}
	if !info.IsDir() {
		t.Error("RuntabHome is not a directory")
	}
}
