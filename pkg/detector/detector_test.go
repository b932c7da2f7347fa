package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/models"
)

func TestGroupKeyMatchesMultiPartArchives(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"mydata~123-1.zip", "mydata~123"},
		{"mydata~123-2.zip", "mydata~123"},
		{"mydata~123.zip", "mydata~123"},
		{"unrelated.zip", "unrelated"},
	}
	for _, c := range cases {
		if got := groupKey(c.name); got != c.want {
			t.Errorf("groupKey(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		index, chat, media bool
		want               models.ValidationStatus
	}{
		{true, true, true, models.StatusValid},
		{true, false, false, models.StatusIncomplete},
		{false, true, false, models.StatusIncomplete},
		{false, false, false, models.StatusUnknown},
	}
	for _, c := range cases {
		if got := classify(c.index, c.chat, c.media); got != c.want {
			t.Errorf("classify(%v,%v,%v) = %q, want %q", c.index, c.chat, c.media, got, c.want)
		}
	}
}

func makeFolderExport(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "html", "chat_history"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "chat_media"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write index.html: %v", err)
	}
	return dir
}

func TestDetectInDirectoryFindsValidFolderExport(t *testing.T) {
	root := t.TempDir()
	makeFolderExport(t, root, "mydata~1")

	d := New(zerolog.Nop())
	sets, err := d.DetectInDirectory(root)
	if err != nil {
		t.Fatalf("DetectInDirectory: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("expected one export set, got %d", len(sets))
	}
	if sets[0].ValidationStatus != models.StatusValid {
		t.Fatalf("expected Valid status, got %q", sets[0].ValidationStatus)
	}
	if sets[0].SourceType != models.SourceFolder {
		t.Fatalf("expected Folder source type, got %q", sets[0].SourceType)
	}
}

func TestDetectInDirectoryIgnoresUnrelatedEntries(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "not-an-export"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	d := New(zerolog.Nop())
	sets, err := d.DetectInDirectory(root)
	if err != nil {
		t.Fatalf("DetectInDirectory: %v", err)
	}
	if len(sets) != 0 {
		t.Fatalf("expected no export sets, got %d", len(sets))
	}
}

func TestDetectInStandardPathsHonorsConfiguredRoots(t *testing.T) {
	root := t.TempDir()
	makeFolderExport(t, root, "mydata~2")

	d := New(zerolog.Nop())
	sets, err := d.DetectInStandardPaths([]string{root})
	if err != nil {
		t.Fatalf("DetectInStandardPaths: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("expected one export set from configured root, got %d", len(sets))
	}
}

func TestDetectInStandardPathsSkipsUnreadableRoots(t *testing.T) {
	d := New(zerolog.Nop())
	sets, err := d.DetectInStandardPaths([]string{filepath.Join(t.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("expected unreadable roots to be skipped, not errored: %v", err)
	}
	if len(sets) != 0 {
		t.Fatalf("expected no export sets, got %d", len(sets))
	}
}
