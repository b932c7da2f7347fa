// Package exportwriter renders a conversation's events to a file, either
// as indented JSON or as one line per event, per SPEC_FULL.md's
// export_conversation supplement.
package exportwriter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// Format selects the output shape.
type Format string

const (
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// WriteConversation writes events to outputPath in the given format. The
// parent directory of the resolved path must already exist; ".." segments
// are resolved, not rejected.
func WriteConversation(events []models.Event, format Format, outputPath string) error {
	resolved, err := resolveOutputPath(outputPath)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return writeJSON(events, resolved)
	case FormatTXT:
		return writeTXT(events, resolved)
	default:
		return apperror.Validation("unknown export format: " + string(format))
	}
}

// resolveOutputPath returns the absolute, cleaned form of outputPath and
// rejects it only when its parent is missing or not a directory. Because
// filepath.Abs already cleans the path, the ".." comparison below never
// fires: a path with ".." segments is accepted wherever it resolves to.
func resolveOutputPath(outputPath string) (string, error) {
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return "", apperror.IO("resolve output path", err)
	}
	cleaned := filepath.Clean(abs)
	if strings.Contains(outputPath, "..") && cleaned != abs {
		return "", apperror.Validation("output path escapes its parent directory")
	}

	parent := filepath.Dir(cleaned)
	info, err := os.Stat(parent)
	if err != nil {
		return "", apperror.Validation("output directory does not exist: " + parent)
	}
	if !info.IsDir() {
		return "", apperror.Validation("output parent is not a directory: " + parent)
	}
	return cleaned, nil
}

func writeJSON(events []models.Event, path string) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return apperror.JSON("marshal conversation export", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.IO("write conversation export", err)
	}
	return nil
}

func writeTXT(events []models.Event, path string) error {
	var b strings.Builder
	for _, e := range events {
		content := "[" + string(e.EventType) + "]"
		if e.Content != nil && *e.Content != "" {
			content = *e.Content
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.SenderName, content)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperror.IO("write conversation export", err)
	}
	return nil
}
