package uistate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReturnsZeroValueForMissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "missing.json"))
	if s != (State{}) {
		t.Fatalf("expected zero-value State, got %+v", s)
	}
}

func TestLoadReturnsZeroValueForMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uistate.json")
	if err := os.WriteFile(path, []byte("{not valid json5!!!"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := Load(path)
	if s != (State{}) {
		t.Fatalf("expected zero-value State for malformed file, got %+v", s)
	}
}

func TestSaveThenLoadRoundtrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "uistate.json")
	want := State{LastStorageRoot: "/data/snapindex", LastSelectedExportID: "exp1"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load(path)
	if got != want {
		t.Fatalf("expected roundtripped state %+v, got %+v", want, got)
	}
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "uistate.json")
	if err := Save(path, State{LastStorageRoot: "/x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
