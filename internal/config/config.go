// Package config holds the per-run optimizer settings supplied by the build
// collaborator. A Config is built once (defaults, then an optional JSON file,
// then CLI overrides) and never mutated while a run is in progress.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Config controls which optimizations run and how their side outputs are
// produced.
type Config struct {
	RepeatResOptEnable       bool     `json:"repeatResOptEnable"`
	ResNameOptEnable         bool     `json:"resNameOptEnable"`
	ResNameOptWhiteRegexList []string `json:"resNameOptWhiteRegexList"`
	ResNameOptPlaceholder    string   `json:"resNameOptPlaceholder"`

	Digest       string `json:"digest"`
	BackupCodec  string `json:"backupCodec"`
	DeflateLevel int    `json:"deflateLevel"`
	// ReportDir is the report base and defaults to <archive dir>/resopt-report
	// when empty. Each run writes below it in <variant>/<timestamp>.
	ReportDir string `json:"reportDir,omitempty"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		RepeatResOptEnable:    true,
		ResNameOptEnable:      true,
		ResNameOptPlaceholder: "opt",
		Digest:                "sha256",
		BackupCodec:           "lz4",
		DeflateLevel:          -1,
	}
}

// Load reads a JSON config file on top of Default. Fields absent from the
// file keep their default values; unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// AnyEnabled reports whether at least one optimization is switched on.
func (c Config) AnyEnabled() bool {
	return c.RepeatResOptEnable || c.ResNameOptEnable
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	c.ResNameOptWhiteRegexList = append([]string(nil), c.ResNameOptWhiteRegexList...)
	return c
}
