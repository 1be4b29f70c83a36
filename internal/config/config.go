// Package config loads the optional quarry.yaml project file. Every field
// has a working default, and command-line flags override whatever the file
// sets, so a config file is never required.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "quarry.yaml"

// Config holds project-level defaults for runs and evaluations.
type Config struct {
	DataPath     string `yaml:"data"`
	ReportPath   string `yaml:"report_path"`
	TracePath    string `yaml:"trace_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	OutputDir    string `yaml:"output_dir"`
	MaxRows      int    `yaml:"max_rows"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReportPath:   "report.md",
		TracePath:    "trace_log.jsonl",
		ArtifactsDir: "artifacts",
		OutputDir:    "eval_results",
	}
}

// Load reads path and overlays it on the defaults. A missing file at the
// default path is not an error; a missing file at an explicit path is.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxRows < 0 {
		return cfg, fmt.Errorf("config %s: max_rows must not be negative", path)
	}
	return cfg, nil
}
