package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestManifestCmd_ListsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtab.yaml")
	writeFile(t, path, `commands:
  - name: deps
    command: pip
    args: ["install", "-r", "requirements.txt"]
    search_fields: ["package"]
  - name: build
    command: make
`)
	t.Setenv("RUNTAB_MANIFEST", path)

	out, _, err := execRoot(t, "manifest")
	if err != nil {
		t.Fatalf("manifest error: %v", err)
	}

	for _, want := range []string{"deps", "pip install -r requirements.txt", "package", "build", "make"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestManifestCmd_Empty(t *testing.T) {
	t.Setenv("RUNTAB_MANIFEST", filepath.Join(t.TempDir(), "runtab.yaml"))

	out, _, err := execRoot(t, "manifest")
	if err != nil {
		t.Fatalf("manifest error: %v", err)
	}
	if !strings.Contains(out, "no manifest entries") {
		t.Errorf("output = %q, want the empty notice", out)
	}
}

func TestManifestCmd_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtab.yaml")
	writeFile(t, path, `commands:
  - command: make
`)
	t.Setenv("RUNTAB_MANIFEST", path)

	_, _, err := execRoot(t, "manifest")
	if err == nil || !strings.Contains(err.Error(), "no name") {
		t.Errorf("error = %v, want a validation error", err)
	}
}
