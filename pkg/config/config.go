// Package config loads runtab's settings file and the optional command
// manifest. Settings tune the loading pipeline (chunk size, quantum, channel
// capacity, debounce); the manifest names pre-defined commands to wrap.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the ~/.runtab/config.toml structure. Zero or out-of-range
// values fall back to the defaults at load time.
type Config struct {
	ChunkSize       int      `toml:"chunk_size"`
	QuantumMS       int      `toml:"quantum_ms"`
	SyncThreshold   int      `toml:"sync_threshold"`
	ChannelCapacity int      `toml:"channel_capacity"`
	DebounceMS      int      `toml:"debounce_ms"`
	GraceSeconds    int      `toml:"grace_seconds"`
	TailLines       int      `toml:"tail_lines"`
	SearchFields    []string `toml:"search_fields"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ChunkSize:       500,
		QuantumMS:       16,
		SyncThreshold:   5000,
		ChannelCapacity: 256,
		DebounceMS:      200,
		GraceSeconds:    3,
		TailLines:       200,
		SearchFields:    []string{"name"},
	}
}

// Load reads the config file at path. A missing file yields the defaults
// without error; a malformed file is an error. Out-of-range numeric values
// fall back to their defaults field by field.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from our own home dir resolution
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

// normalized replaces out-of-range values with the defaults.
func (c Config) normalized() Config {
	def := Default()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.QuantumMS <= 0 {
		c.QuantumMS = def.QuantumMS
	}
	if c.SyncThreshold <= 0 {
		c.SyncThreshold = def.SyncThreshold
	}
	if c.ChannelCapacity <= 0 {
		c.ChannelCapacity = def.ChannelCapacity
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = def.DebounceMS
	}
	if c.GraceSeconds <= 0 {
		c.GraceSeconds = def.GraceSeconds
	}
	if c.TailLines <= 0 {
		c.TailLines = def.TailLines
	}
	if len(c.SearchFields) == 0 {
		c.SearchFields = def.SearchFields
	}
	return c
}

// Quantum returns the chunk scheduling quantum.
func (c Config) Quantum() time.Duration {
	return time.Duration(c.QuantumMS) * time.Millisecond
}

// Debounce returns the filter coalescing window.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Grace returns the cancel grace period before SIGKILL.
func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}
