package extractor

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
}

func TestExtractExpandsEntriesUnderTargetDir(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "part.zip")
	writeZip(t, zipPath, map[string]string{
		"index.html":            "<html></html>",
		"html/chat_history/a.json": "{}",
	})

	target := filepath.Join(dir, "out")
	e := New(zerolog.Nop())
	workDir, err := e.Extract([]string{zipPath}, target, "exp1", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(workDir, "index.html")); err != nil {
		t.Fatalf("expected index.html extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "html", "chat_history", "a.json")); err != nil {
		t.Fatalf("expected nested file extracted: %v", err)
	}
}

// Zip-slip invariant (spec.md §8): no entry resolving outside the working
// directory ever creates a file.
func TestExtractRejectsZipSlipEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../../escaped.txt": "pwned",
	})

	target := filepath.Join(dir, "out")
	e := New(zerolog.Nop())
	if _, err := e.Extract([]string{zipPath}, target, "exp1", nil); err == nil {
		t.Fatal("expected error for zip-slip entry")
	}

	if _, statErr := os.Stat(filepath.Join(dir, "escaped.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file written outside target, stat err = %v", statErr)
	}
}

func TestExtractRejectsAbsolutePathEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil-abs.zip")
	writeZip(t, zipPath, map[string]string{
		"/etc/passwd": "pwned",
	})

	target := filepath.Join(dir, "out")
	e := New(zerolog.Nop())
	if _, err := e.Extract([]string{zipPath}, target, "exp1", nil); err == nil {
		t.Fatal("expected error for absolute-path entry")
	}
}

func TestExtractLaterPartWinsOnCollision(t *testing.T) {
	dir := t.TempDir()
	part1 := filepath.Join(dir, "p1.zip")
	part2 := filepath.Join(dir, "p2.zip")
	writeZip(t, part1, map[string]string{"shared.txt": "first"})
	writeZip(t, part2, map[string]string{"shared.txt": "second"})

	target := filepath.Join(dir, "out")
	e := New(zerolog.Nop())
	workDir, err := e.Extract([]string{part1, part2}, target, "exp1", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(workDir, "shared.txt"))
	if err != nil {
		t.Fatalf("read shared.txt: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected later part to win, got %q", string(got))
	}
}

func TestResolveEntryPathRejectsTraversal(t *testing.T) {
	cases := []string{"../outside.txt", "a/../../outside.txt", "/abs/path.txt"}
	for _, name := range cases {
		if _, err := resolveEntryPath(t.TempDir(), name); err == nil {
			t.Errorf("resolveEntryPath(%q) expected error, got nil", name)
		}
	}
}
