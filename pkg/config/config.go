// Package config loads doppel configuration from TOML, YAML, or JSON.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomars/doppel/pkg/analyzer/neardup"
)

// Config holds all configuration options for doppel.
type Config struct {
	Scan   ScanConfig   `koanf:"scan"`
	Detect DetectConfig `koanf:"detect"`
	Output OutputConfig `koanf:"output"`
}

// ScanConfig controls how the source tree is walked.
type ScanConfig struct {
	// Dirs never descended into.
	ExcludeDirs []string `koanf:"exclude_dirs"`
	// Honor .gitignore files found in the tree.
	Gitignore bool `koanf:"gitignore"`
	// First-segment directories treated as module roots (see pkg/modkey).
	ModuleRoots []string `koanf:"module_roots"`
	// Directory segments kept in a module key under a module root.
	ModuleDepth int `koanf:"module_depth"`
}

// DetectConfig controls the near-duplicate analyzer.
type DetectConfig struct {
	Scope        string   `koanf:"scope"`
	Threshold    float64  `koanf:"threshold"`
	MaxFiles     int      `koanf:"max_files"`
	MaxPairs     int      `koanf:"max_pairs"`
	MaxBytes     int64    `koanf:"max_bytes"`
	MaxFileBytes int64    `koanf:"max_file_bytes"`
	Exclude      []string `koanf:"exclude"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			ExcludeDirs: []string{
				"vendor",
				"node_modules",
				".git",
				"dist",
				"build",
				"target",
				"__pycache__",
			},
			Gitignore:   true,
			ModuleRoots: []string{"crates", "packages", "pkg", "internal", "cmd", "src", "lib"},
			ModuleDepth: 2,
		},
		Detect: DetectConfig{
			Scope:        string(neardup.ScopeModule),
			Threshold:    0.80,
			MaxFiles:     2000,
			MaxFileBytes: neardup.DefaultMaxFileBytes,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, picking the parser by extension.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault tries standard config locations, falling back to defaults.
func LoadOrDefault() *Config {
	names := []string{
		"doppel.toml",
		"doppel.yaml",
		"doppel.yml",
		"doppel.json",
		".doppel.toml",
		".doppel.yaml",
		".doppel.yml",
		".doppel.json",
	}
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			if cfg, err := Load(name); err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}
