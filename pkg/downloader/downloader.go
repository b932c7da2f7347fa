// Package downloader streams cloud-hosted memory media to disk, updating
// the Store's download status and emitting progress, per spec.md §4.8.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
	"github.com/snapindex/snapindex/pkg/store"
)

// requestTimeout bounds each whole HTTP request, body download included
// (http.Client.Timeout); it is not an idle timeout, so a large file that
// takes longer than this to stream is cut off.
const requestTimeout = 30 * time.Second

// chunkSize is the read buffer used while streaming a response body to
// disk, controlling how often progress is reported.
const chunkSize = 64 * 1024

// ProgressFunc receives DownloadProgress events.
type ProgressFunc func(models.DownloadProgress)

// Downloader streams memory media over HTTP.
type Downloader struct {
	client      *http.Client
	store       *store.Store
	storageRoot string
	log         zerolog.Logger
}

// New constructs a Downloader writing under storageRoot.
func New(s *store.Store, storageRoot string, log zerolog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		store:       s,
		storageRoot: storageRoot,
		log:         log.With().Str("component", "downloader").Logger(),
	}
}

// targetPath computes <storage_root>/Memories/<YYYY>/<MM>/<id>.<ext> where
// ext is mp4 for videos else jpg (spec.md §4.8).
func (d *Downloader) targetPath(m models.Memory) string {
	ext := "jpg"
	if m.MediaType == models.MediaVideo {
		ext = "mp4"
	}
	return filepath.Join(d.storageRoot, "Memories", m.Timestamp.Format("2006"), m.Timestamp.Format("01"), m.ID+"."+ext)
}

// DownloadMemory runs the four-step protocol of spec.md §4.8: mark
// Downloading, GET, stream to disk with progress, then mark Downloaded or
// Failed.
func (d *Downloader) DownloadMemory(ctx context.Context, m models.Memory, onProgress ProgressFunc) error {
	if m.DownloadURL == nil || *m.DownloadURL == "" {
		return apperror.Validation("memory " + m.ID + " has no download_url")
	}

	emit := func(progress float64, status models.DownloadStatus, bytes int64, total *int64) {
		if onProgress != nil {
			onProgress(models.DownloadProgress{MemoryID: m.ID, Progress: progress, Status: status, BytesDownloaded: bytes, TotalBytes: total})
		}
	}

	if err := d.store.UpdateMemoryStatus(ctx, m.ID, models.DownloadDownloading, nil); err != nil {
		return err
	}
	emit(0, models.DownloadDownloading, 0, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *m.DownloadURL, nil)
	if err != nil {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("build request for memory "+m.ID, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("request memory "+m.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("memory "+m.ID+" http status "+resp.Status, nil)
	}

	var total *int64
	if resp.ContentLength > 0 {
		cl := resp.ContentLength
		total = &cl
	}

	target := d.targetPath(m)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("create memory directory", err)
	}
	f, err := os.Create(target)
	if err != nil {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("create memory file", err)
	}
	defer f.Close()

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				d.fail(ctx, m.ID, emit)
				return apperror.IO("write memory chunk", writeErr)
			}
			written += int64(n)
			if total != nil {
				emit(float64(written)/float64(*total), models.DownloadDownloading, written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			d.fail(ctx, m.ID, emit)
			return apperror.IO("read memory chunk", readErr)
		}
	}

	if err := f.Close(); err != nil {
		d.fail(ctx, m.ID, emit)
		return apperror.IO("flush memory file", err)
	}
	if err := d.store.UpdateMemoryStatus(ctx, m.ID, models.DownloadDownloaded, &target); err != nil {
		return err
	}
	emit(1.0, models.DownloadDownloaded, written, total)
	return nil
}

func (d *Downloader) fail(ctx context.Context, memoryID string, emit func(float64, models.DownloadStatus, int64, *int64)) {
	if err := d.store.UpdateMemoryStatus(ctx, memoryID, models.DownloadFailed, nil); err != nil {
		d.log.Warn().Err(err).Str("memory_id", memoryID).Msg("failed to persist Failed status")
	}
	emit(0, models.DownloadFailed, 0, nil)
}

// DownloadAllPending filters memories whose status is Pending or Failed and
// processes them sequentially; failure of one never aborts the batch
// (spec.md §4.8).
func (d *Downloader) DownloadAllPending(ctx context.Context, onProgress ProgressFunc) (int, []string) {
	memories, err := d.store.PendingOrFailedMemories(ctx)
	if err != nil {
		return 0, []string{err.Error()}
	}

	var warnings []string
	succeeded := 0
	for _, m := range memories {
		if err := d.DownloadMemory(ctx, m, onProgress); err != nil {
			warnings = append(warnings, "memory "+m.ID+": "+err.Error())
			continue
		}
		succeeded++
	}
	return succeeded, warnings
}
