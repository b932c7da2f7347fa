package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/models"
	"github.com/snapindex/snapindex/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMemory(t *testing.T, s *store.Store, m models.Memory) {
	t.Helper()
	ctx := context.Background()
	if err := s.InsertExport(ctx, models.ExportSet{
		ID: m.ExportID, SourcePaths: []string{"/tmp"}, SourceType: models.SourceFolder, ValidationStatus: models.StatusValid,
	}); err != nil {
		t.Fatalf("InsertExport: %v", err)
	}
	if err := s.InsertMemories(ctx, []models.Memory{m}); err != nil {
		t.Fatalf("InsertMemories: %v", err)
	}
}

func TestDownloadMemoryStreamsToStorageRootAndMarksDownloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-image-bytes"))
	}))
	defer srv.Close()

	s := openTestStore(t)
	url := srv.URL
	m := models.Memory{ID: "mem1", ExportID: "e1", MediaType: models.MediaImage, DownloadURL: &url, DownloadStatus: models.DownloadPending}
	seedMemory(t, s, m)

	root := t.TempDir()
	d := New(s, root, zerolog.Nop())

	var progressed []models.DownloadProgress
	err := d.DownloadMemory(context.Background(), m, func(p models.DownloadProgress) { progressed = append(progressed, p) })
	if err != nil {
		t.Fatalf("DownloadMemory: %v", err)
	}

	target := d.targetPath(m)
	data, readErr := os.ReadFile(target)
	if readErr != nil {
		t.Fatalf("expected file at %s: %v", target, readErr)
	}
	if string(data) != "fake-image-bytes" {
		t.Fatalf("unexpected file content: %q", data)
	}
	if len(progressed) == 0 || progressed[len(progressed)-1].Status != models.DownloadDownloaded {
		t.Fatalf("expected final progress status Downloaded, got %+v", progressed)
	}

	memories, err := s.GetMemories(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(memories) != 1 || memories[0].DownloadStatus != models.DownloadDownloaded {
		t.Fatalf("expected persisted Downloaded status, got %+v", memories)
	}
}

func TestDownloadMemoryMarksFailedOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := openTestStore(t)
	url := srv.URL
	m := models.Memory{ID: "mem1", ExportID: "e1", MediaType: models.MediaImage, DownloadURL: &url, DownloadStatus: models.DownloadPending}
	seedMemory(t, s, m)

	d := New(s, t.TempDir(), zerolog.Nop())
	if err := d.DownloadMemory(context.Background(), m, nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}

	memories, err := s.GetMemories(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(memories) != 1 || memories[0].DownloadStatus != models.DownloadFailed {
		t.Fatalf("expected persisted Failed status, got %+v", memories)
	}
}

func TestDownloadMemoryRejectsMissingURL(t *testing.T) {
	s := openTestStore(t)
	m := models.Memory{ID: "mem1", ExportID: "e1", MediaType: models.MediaImage}
	seedMemory(t, s, m)

	d := New(s, t.TempDir(), zerolog.Nop())
	if err := d.DownloadMemory(context.Background(), m, nil); err == nil {
		t.Fatal("expected error for missing download url")
	}
}

func TestTargetPathPicksExtensionByMediaType(t *testing.T) {
	d := New(nil, "/root-storage", zerolog.Nop())
	ts := models.Memory{ID: "abc", MediaType: models.MediaVideo}
	path := d.targetPath(ts)
	if filepath.Ext(path) != ".mp4" {
		t.Errorf("expected .mp4 extension for video memory, got %q", path)
	}

	ts.MediaType = models.MediaImage
	path = d.targetPath(ts)
	if filepath.Ext(path) != ".jpg" {
		t.Errorf("expected .jpg extension for image memory, got %q", path)
	}
}

func TestDownloadAllPendingContinuesAfterOneFailure(t *testing.T) {
	goodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer goodSrv.Close()
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	s := openTestStore(t)
	goodURL, badURL := goodSrv.URL, badSrv.URL
	seedMemory(t, s, models.Memory{ID: "good", ExportID: "e1", MediaType: models.MediaImage, DownloadURL: &goodURL, DownloadStatus: models.DownloadPending})
	if err := s.InsertMemories(context.Background(), []models.Memory{
		{ID: "bad", ExportID: "e1", MediaType: models.MediaImage, DownloadURL: &badURL, DownloadStatus: models.DownloadPending},
	}); err != nil {
		t.Fatalf("InsertMemories: %v", err)
	}

	d := New(s, t.TempDir(), zerolog.Nop())
	succeeded, warnings := d.DownloadAllPending(context.Background(), nil)
	if succeeded != 1 {
		t.Fatalf("expected 1 success, got %d", succeeded)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for the failed memory, got %v", warnings)
	}
}
