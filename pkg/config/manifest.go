package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one named command in the runtab.yaml manifest.
type Entry struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`

	// SearchFields overrides the config's searchable fields for this
	// command's rows.
	SearchFields []string `yaml:"search_fields,omitempty"`
}

// Manifest is the runtab.yaml structure: a list of wrappable commands.
type Manifest struct {
	Commands []Entry `yaml:"commands"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest without error.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from our own home dir resolution
	if os.IsNotExist(err) {
		return Manifest{}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for i, e := range m.Commands {
		if e.Name == "" {
			return Manifest{}, fmt.Errorf("manifest %s: entry %d has no name", path, i)
		}
		if e.Command == "" {
			return Manifest{}, fmt.Errorf("manifest %s: entry %q has no command", path, e.Name)
		}
	}
	return m, nil
}

// Find returns the named entry.
func (m Manifest) Find(name string) (Entry, bool) {
	for _, e := range m.Commands {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
