package medialinker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/models"
)

// Scenario 7: Media ID extraction.
func TestExtractMediaID(t *testing.T) {
	cases := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"2023-01-01_TESTID123.jpg", "TESTID123", true},
		{"2023-06-15_ID-WITH-DASHES.png", "ID-WITH-DASHES", true},
		{"nounderscorefile.jpg", "", false},
	}
	for _, c := range cases {
		id, ok := extractMediaID(c.name)
		if ok != c.wantOK || id != c.wantID {
			t.Errorf("extractMediaID(%q) = (%q, %v), want (%q, %v)", c.name, id, ok, c.wantID, c.wantOK)
		}
	}
}

func TestAddMediaDirectoryIndexesTwoOfThreeFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2023-01-01_TESTID123.jpg", "2023-06-15_ID-WITH-DASHES.png", "nounderscorefile.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	l := New(zerolog.Nop())
	if err := l.AddMediaDirectory(dir); err != nil {
		t.Fatalf("AddMediaDirectory: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 indexed ids, got %d", l.Len())
	}
}

func TestAddMediaDirectoryToleratesMissingDir(t *testing.T) {
	l := New(zerolog.Nop())
	if err := l.AddMediaDirectory(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("expected no error for missing directory, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty index, got %d entries", l.Len())
	}
}

// Linker idempotence invariant (spec.md §8).
func TestLinkEventsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "2023-01-01_ABC.jpg")
	if err := os.WriteFile(mediaPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	l := New(zerolog.Nop())
	if err := l.AddMediaDirectory(dir); err != nil {
		t.Fatalf("AddMediaDirectory: %v", err)
	}

	events := []models.Event{
		{
			ID:        "ev1",
			EventType: models.EventMedia,
			Metadata:  &models.EventMetadata{MediaIDs: []string{"ABC"}},
		},
	}
	l.LinkEvents(events)
	if len(events[0].MediaReferences) != 1 {
		t.Fatalf("expected one linked reference, got %v", events[0].MediaReferences)
	}

	l.LinkEvents(events)
	if len(events[0].MediaReferences) != 1 {
		t.Fatalf("expected linking twice to stay idempotent, got %v", events[0].MediaReferences)
	}
}

func TestLinkEventsSkipsMissingID(t *testing.T) {
	l := New(zerolog.Nop())
	events := []models.Event{
		{
			ID:        "ev1",
			EventType: models.EventMedia,
			Metadata:  &models.EventMetadata{MediaIDs: []string{"MISSING"}},
		},
	}
	l.LinkEvents(events)
	if len(events[0].MediaReferences) != 0 {
		t.Fatalf("expected no references for unresolved id, got %v", events[0].MediaReferences)
	}
}
