// Package config loads and persists snapindex's durable configuration:
// the storage root, scan roots, log level, and scheduler expression.
// Modeled on the teacher's LinkPreviewConfig default/load/save shape.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// Config is the full set of durable, user-editable settings.
type Config struct {
	StorageRoot  string   `yaml:"storage_root"`
	ScanRoots    []string `yaml:"scan_roots"`
	LogLevel     string   `yaml:"log_level"`
	AutoSchedule string   `yaml:"auto_schedule"`
}

// DefaultConfig returns the out-of-the-box configuration: a storage root
// under the user's home directory, the standard OS download/document/
// desktop directories as scan roots, info-level logging, and a daily
// 03:00 auto-detect schedule.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		StorageRoot: filepath.Join(home, ".snapindex"),
		ScanRoots: []string{
			filepath.Join(home, "Downloads"),
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Desktop"),
		},
		LogLevel:     "info",
		AutoSchedule: "0 3 * * *",
	}
}

// Load reads Config from path, falling back to DefaultConfig when the file
// does not exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, apperror.IO("read config", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, apperror.Parsing("parse config", err)
	}
	return cfg, nil
}

// Save writes Config to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperror.IO("create config directory", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return apperror.Generic("marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.IO("write config", err)
	}
	return nil
}
