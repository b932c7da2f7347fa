// Package medialinker builds a media-id -> file-path index from the
// working export's media directories and attaches file paths to events
// that reference those ids, per spec.md §4.6.
package medialinker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/models"
)

// Linker maps a media id to its resolved file path.
type Linker struct {
	idMap map[string]string
	log   zerolog.Logger
}

// New constructs an empty Linker.
func New(log zerolog.Logger) *Linker {
	return &Linker{
		idMap: map[string]string{},
		log:   log.With().Str("component", "medialinker").Logger(),
	}
}

// AddMediaDirectory recursively scans dir for media files, indexing each by
// the id extracted from its filename. Id collisions are resolved
// last-write-wins and logged (spec.md §4.6).
func (l *Linker) AddMediaDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		// Missing media directories are tolerated; only one of chat_media/
		// or media/ is guaranteed to exist.
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		id, ok := extractMediaID(d.Name())
		if !ok {
			return nil
		}
		resolved := path
		if abs, err := filepath.Abs(path); err == nil {
			resolved = abs
		}
		if existing, collides := l.idMap[id]; collides && existing != resolved {
			l.log.Warn().Str("id", id).Str("previous", existing).Str("new", resolved).Msg("media id collision, last write wins")
		}
		l.idMap[id] = resolved
		return nil
	})
}

// extractMediaID returns the substring between the first '_' and the last
// '.' in a filename (spec.md §4.6, §8 scenario 7). Filenames with no '_'
// contribute nothing.
func extractMediaID(name string) (string, bool) {
	underscore := strings.Index(name, "_")
	if underscore < 0 {
		return "", false
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 || dot <= underscore {
		return "", false
	}
	return name[underscore+1 : dot], true
}

// Len reports the number of distinct media ids indexed.
func (l *Linker) Len() int { return len(l.idMap) }

// LinkEvents attaches media references to every event whose type is
// media-carrying and whose MediaReferences list is already empty, matching
// ids against the Linker's index. Existence is checked at attach time only
// (spec.md §4.6, §9 Open Question); missing ids are skipped without
// failing the event. Running this twice on the same events is a no-op the
// second time, since already-linked events are skipped (spec.md §8).
func (l *Linker) LinkEvents(events []models.Event) {
	for i := range events {
		e := &events[i]
		if !e.EventType.IsMediaCarrying() || len(e.MediaReferences) > 0 {
			continue
		}
		if e.Metadata == nil || len(e.Metadata.MediaIDs) == 0 {
			continue
		}
		for _, id := range e.Metadata.MediaIDs {
			path, ok := l.idMap[id]
			if !ok {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				continue
			}
			e.MediaReferences = append(e.MediaReferences, path)
		}
	}
}
