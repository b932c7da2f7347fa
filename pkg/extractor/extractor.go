// Package extractor safely expands one or more zip archive parts into a
// working directory, per spec.md §4.3.
package extractor

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// Size caps from spec.md §4.3.
const (
	maxSingleArchiveBytes = 5 * 1024 * 1024 * 1024
	maxGroupBytes         = 500 * 1024 * 1024 * 1024
)

// Progress is emitted every 100 entries and at the end of each part,
// mapped into the [0, 0.10] slice of the overall pipeline by the caller.
type Progress struct {
	Part       int
	TotalParts int
	Entry      int
	TotalEntries int
}

// ProgressFunc receives Extractor progress updates.
type ProgressFunc func(Progress)

// Extractor expands zip parts into target/<exportID>.
type Extractor struct {
	log zerolog.Logger
}

// New constructs an Extractor.
func New(log zerolog.Logger) *Extractor {
	return &Extractor{log: log.With().Str("component", "extractor").Logger()}
}

// Extract opens each part in order and streams its entries to
// target/<exportID>. Later parts win on path collisions. Returns the
// working directory path.
func (e *Extractor) Extract(parts []string, target, exportID string, onProgress ProgressFunc) (string, error) {
	workDir := filepath.Join(target, exportID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", apperror.IO("create working directory", err)
	}

	capBytes := maxSingleArchiveBytes
	if len(parts) > 1 {
		capBytes = maxGroupBytes
	}

	var totalBytes int64
	for partIdx, part := range parts {
		r, err := zip.OpenReader(part)
		if err != nil {
			return "", apperror.Validation("cannot open archive part " + part + ": " + err.Error())
		}
		if err := e.extractPart(r, workDir, partIdx, len(parts), &totalBytes, int64(capBytes), onProgress); err != nil {
			r.Close()
			return "", err
		}
		r.Close()
	}
	return workDir, nil
}

func (e *Extractor) extractPart(r *zip.ReadCloser, workDir string, partIdx, totalParts int, totalBytes *int64, capBytes int64, onProgress ProgressFunc) error {
	total := len(r.File)
	for i, f := range r.File {
		destPath, err := resolveEntryPath(workDir, f.Name)
		if err != nil {
			return apperror.Validation("zip entry escapes working directory: " + f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return apperror.IO("create directory "+destPath, err)
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return apperror.IO("create parent directory for "+destPath, err)
			}
			written, err := extractFile(f, destPath)
			if err != nil {
				return err
			}
			*totalBytes += written
			if *totalBytes > capBytes {
				return apperror.Validation("extraction exceeds size cap")
			}
		}

		if i%100 == 0 || i == total-1 {
			if onProgress != nil {
				onProgress(Progress{Part: partIdx, TotalParts: totalParts, Entry: i, TotalEntries: total})
			}
		}
	}
	return nil
}

// extractFile streams one zip entry to disk, overwriting any file already
// present at destPath (the "later part wins" rule for multi-part groups).
func extractFile(f *zip.File, destPath string) (int64, error) {
	src, err := f.Open()
	if err != nil {
		return 0, apperror.IO("open zip entry "+f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, apperror.IO("create file "+destPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return written, apperror.IO("write file "+destPath, err)
	}
	return written, nil
}

// resolveEntryPath rejects entries whose canonical resolved path escapes
// workDir, protecting against absolute paths and ".." traversal
// (zip-slip), per spec.md §4.3.
func resolveEntryPath(workDir, entryName string) (string, error) {
	cleaned := filepath.Clean(strings.ReplaceAll(entryName, "\\", "/"))
	if filepath.IsAbs(cleaned) {
		return "", apperror.Validation("absolute zip entry path: " + entryName)
	}
	joined := filepath.Join(workDir, cleaned)
	rel, err := filepath.Rel(workDir, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperror.Validation("zip entry escapes working directory: " + entryName)
	}
	return joined, nil
}
