// Package detector recognizes vendor export artifacts on disk and groups
// multi-part archives into a single logical ExportSet, per spec.md §4.2.
package detector

import (
	"archive/zip"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// exportPrefix is the canonical vendor export name prefix (e.g. the "mydata~"
// prefix used by the source archive's own naming convention).
const exportPrefix = "mydata~"

// vendorTag is a secondary substring match for directories that don't use
// the canonical prefix but carry the vendor's tag in their name.
const vendorTag = "snapchat"

// groupIDPattern yields the canonical base id across multi-part archives:
// "mydata~123-1.zip" and "mydata~123-2.zip" both match to base id
// "mydata~123" (spec.md §4.2, §9).
var groupIDPattern = regexp.MustCompile(`^(` + regexp.QuoteMeta(exportPrefix) + `\d+)(?:-\d+)?(?:\.zip)?$`)

const requiredIndexFile = "index.html"
const requiredChatHistoryDir = "html/chat_history"

var requiredMediaDirs = []string{"chat_media", "media"}

// Detector scans the filesystem for export candidates.
type Detector struct {
	log zerolog.Logger
}

// New constructs a Detector.
func New(log zerolog.Logger) *Detector {
	return &Detector{log: log.With().Str("component", "detector").Logger()}
}

// candidate is one file-system entry being considered for grouping, before
// validation collapses it into an ExportSet.
type candidate struct {
	path    string
	isDir   bool
	baseID  string
}

// DetectInStandardPaths scans the given roots (falling back to the user's
// downloads, documents, and desktop directories when roots is empty),
// de-duplicating groups by id across roots (first win).
func (d *Detector) DetectInStandardPaths(roots []string) ([]models.ExportSet, error) {
	if len(roots) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, apperror.IO("resolve home directory", err)
		}
		roots = []string{
			filepath.Join(home, "Downloads"),
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Desktop"),
		}
	}

	seen := map[string]bool{}
	var out []models.ExportSet
	for _, root := range roots {
		sets, err := d.DetectInDirectory(root)
		if err != nil {
			d.log.Warn().Err(err).Str("root", root).Msg("skipping unreadable scan root")
			continue
		}
		for _, set := range sets {
			if seen[set.ID] {
				continue
			}
			seen[set.ID] = true
			out = append(out, set)
		}
	}
	return out, nil
}

// DetectInDirectory inspects path (a file or directory) and returns the
// ExportSets found there, per the five-step algorithm of spec.md §4.2.
func (d *Detector) DetectInDirectory(path string) ([]models.ExportSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperror.IO("stat "+path, err)
	}

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(path), ".zip") {
			return nil, nil
		}
		set, ok := d.validateZipGroup([]string{path})
		if !ok {
			return nil, nil
		}
		return []models.ExportSet{set}, nil
	}

	if set, ok := d.validateFolderGroup([]string{path}); ok {
		return []models.ExportSet{set}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, apperror.IO("read directory "+path, err)
	}

	var candidates []candidate
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !strings.HasPrefix(name, exportPrefix) && !strings.Contains(name, vendorTag) {
			continue
		}
		candidates = append(candidates, candidate{
			path:   filepath.Join(path, entry.Name()),
			isDir:  entry.IsDir(),
			baseID: groupKey(entry.Name()),
		})
	}

	groups := map[string][]candidate{}
	var order []string
	for _, c := range candidates {
		if _, ok := groups[c.baseID]; !ok {
			order = append(order, c.baseID)
		}
		groups[c.baseID] = append(groups[c.baseID], c)
	}

	var out []models.ExportSet
	for _, id := range order {
		members := groups[id]
		var paths []string
		allDirs := true
		for _, m := range members {
			paths = append(paths, m.path)
			if !m.isDir {
				allDirs = false
			}
		}
		var set models.ExportSet
		var ok bool
		if allDirs {
			set, ok = d.validateFolderGroup(paths)
		} else {
			set, ok = d.validateZipGroup(paths)
		}
		if !ok {
			continue
		}
		out = append(out, set)
	}
	return out, nil
}

// groupKey derives the canonical base id from a member name, falling back
// to the file stem when the grouping regex doesn't match (spec.md §4.2).
func groupKey(name string) string {
	if m := groupIDPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func sortedCopy(paths []string) []string {
	out := append([]string(nil), paths...)
	// Lexical order keeps "-1" before "-2" for the common zero/one-padded
	// part-numbering convention used by multi-part exports.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// validateFolderGroup checks each member path on disk for the three
// required signatures: index.html, html/chat_history/, and either
// chat_media/ or media/. Status is Valid if all three are observed across
// the group, Incomplete if only some are, Unknown (dropped) otherwise.
func (d *Detector) validateFolderGroup(paths []string) (models.ExportSet, bool) {
	paths = sortedCopy(paths)
	var hasIndex, hasChatHistory, hasMedia bool
	for _, p := range paths {
		if fileExists(filepath.Join(p, requiredIndexFile)) {
			hasIndex = true
		}
		if dirExists(filepath.Join(p, requiredChatHistoryDir)) {
			hasChatHistory = true
		}
		for _, m := range requiredMediaDirs {
			if dirExists(filepath.Join(p, m)) {
				hasMedia = true
			}
		}
		// Siblings check: some single-folder exports keep index.html in the
		// parent of a nested working directory.
		if fileExists(filepath.Join(filepath.Dir(p), requiredIndexFile)) {
			hasIndex = true
		}
	}
	status := classify(hasIndex, hasChatHistory, hasMedia)
	if status == models.StatusUnknown {
		return models.ExportSet{}, false
	}
	return models.ExportSet{
		ID:               groupKey(filepath.Base(paths[0])),
		SourcePaths:      paths,
		SourceType:       models.SourceFolder,
		CreationDate:     creationTime(paths[0]),
		ValidationStatus: status,
	}, true
}

// validateZipGroup inspects archive directory entries for the same three
// signatures, across every part of the group.
func (d *Detector) validateZipGroup(paths []string) (models.ExportSet, bool) {
	paths = sortedCopy(paths)
	var hasIndex, hasChatHistory, hasMedia bool
	openFailures := 0
	for _, p := range paths {
		r, err := zip.OpenReader(p)
		if err != nil {
			openFailures++
			continue
		}
		for _, f := range r.File {
			name := f.Name
			if name == requiredIndexFile {
				hasIndex = true
			}
			if strings.HasPrefix(name, requiredChatHistoryDir) {
				hasChatHistory = true
			}
			for _, m := range requiredMediaDirs {
				if strings.HasPrefix(name, m+"/") {
					hasMedia = true
				}
			}
		}
		r.Close()
	}
	var status models.ValidationStatus
	if openFailures == len(paths) {
		status = models.StatusCorrupted
	} else {
		status = classify(hasIndex, hasChatHistory, hasMedia)
	}
	if status == models.StatusUnknown {
		return models.ExportSet{}, false
	}
	return models.ExportSet{
		ID:               groupKey(filepath.Base(paths[0])),
		SourcePaths:      paths,
		SourceType:       models.SourceZip,
		CreationDate:     creationTime(paths[0]),
		ValidationStatus: status,
	}, true
}

func classify(hasIndex, hasChatHistory, hasMedia bool) models.ValidationStatus {
	switch {
	case hasIndex && hasChatHistory && hasMedia:
		return models.StatusValid
	case hasIndex || hasChatHistory || hasMedia:
		return models.StatusIncomplete
	default:
		return models.StatusUnknown
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// creationTime returns the modification time of path, in UTC. The
// filesystem creation (birth) time is not read on any platform.
func creationTime(path string) *time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	t := info.ModTime().UTC()
	return &t
}
