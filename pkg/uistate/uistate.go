// Package uistate persists small, disposable cross-run state — state that
// is convenient to remember but never load-bearing, unlike pkg/config.
// Grounded on pkg/cron/store.go's LoadCronStore/SaveCronStore: a missing or
// malformed file falls back to a zero-value default instead of erroring.
package uistate

import (
	"os"
	"path/filepath"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// State holds the tolerant, last-used-wins fields.
type State struct {
	LastStorageRoot      string `json:"last_storage_root"`
	LastSelectedExportID string `json:"last_selected_export_id"`
}

// Load reads State from path. A missing or malformed file yields a
// zero-value State rather than an error, since nothing here is required
// for correct operation.
func Load(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}
	}
	var s State
	if err := json5.Unmarshal(data, &s); err != nil {
		return State{}
	}
	return s
}

// Save writes State to path, creating parent directories as needed.
func Save(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperror.IO("create ui state directory", err)
	}
	data, err := json5.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperror.Generic("marshal ui state", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.IO("write ui state", err)
	}
	return nil
}
