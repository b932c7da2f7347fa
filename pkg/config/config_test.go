package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg.StorageRoot != want.StorageRoot || cfg.LogLevel != want.LogLevel || cfg.AutoSchedule != want.AutoSchedule {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestSaveThenLoadRoundtrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Config{
		StorageRoot:  "/data/snapindex",
		ScanRoots:    []string{"/data/in"},
		LogLevel:     "debug",
		AutoSchedule: "0 4 * * *",
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !equalConfig(got, cfg) {
		t.Fatalf("expected roundtripped config %+v, got %+v", cfg, got)
	}
}

func equalConfig(a, b Config) bool {
	if a.StorageRoot != b.StorageRoot || a.LogLevel != b.LogLevel || a.AutoSchedule != b.AutoSchedule {
		return false
	}
	if len(a.ScanRoots) != len(b.ScanRoots) {
		return false
	}
	for i := range a.ScanRoots {
		if a.ScanRoots[i] != b.ScanRoots[i] {
			return false
		}
	}
	return true
}

func TestLoadPartialFileKeepsDefaultsForUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected overridden log_level, got %q", cfg.LogLevel)
	}
	if cfg.StorageRoot != DefaultConfig().StorageRoot {
		t.Fatalf("expected default storage_root preserved, got %q", cfg.StorageRoot)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
