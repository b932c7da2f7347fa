package store

import (
	"context"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// InsertMemories batch-inserts memory rows inside a single transaction over
// a single prepared statement.
func (s *Store) InsertMemories(ctx context.Context, memories []models.Memory) error {
	if len(memories) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin memories tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memories (id, timestamp, media_type, latitude, longitude, media_path, download_url, proxy_url, download_status, export_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			media_type = excluded.media_type,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			media_path = excluded.media_path,
			download_url = excluded.download_url,
			proxy_url = excluded.proxy_url,
			download_status = excluded.download_status,
			export_id = excluded.export_id
	`)
	if err != nil {
		return apperror.Store("prepare memories insert", err)
	}
	defer stmt.Close()

	for _, m := range memories {
		if _, err := stmt.ExecContext(ctx, m.ID, formatTime(m.Timestamp), string(m.MediaType), m.Latitude, m.Longitude,
			m.MediaPath, m.DownloadURL, m.ProxyURL, string(m.DownloadStatus), m.ExportID); err != nil {
			return apperror.Store("insert memory "+m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit memories tx", err)
	}
	return nil
}

func (s *Store) scanMemoryRow(scan func(dest ...any) error) (models.Memory, error) {
	var (
		m         models.Memory
		timestamp string
		mediaType string
		status    string
	)
	if err := scan(&m.ID, &timestamp, &mediaType, &m.Latitude, &m.Longitude, &m.MediaPath,
		&m.DownloadURL, &m.ProxyURL, &status, &m.ExportID); err != nil {
		return m, apperror.Store("scan memory", err)
	}
	m.Timestamp = parseTime(timestamp, s.logWarn)
	m.MediaType = models.MediaType(mediaType)
	m.DownloadStatus = models.DownloadStatus(status)
	return m, nil
}

const selectMemoriesSQL = `
	SELECT id, timestamp, media_type, latitude, longitude, media_path, download_url, proxy_url, download_status, export_id
	FROM memories
`

// GetMemories lists memories, optionally filtered to one export.
func (s *Store) GetMemories(ctx context.Context, exportID string) ([]models.Memory, error) {
	query := selectMemoriesSQL + " ORDER BY timestamp DESC"
	var rows interface {
		Next() bool
		Scan(...any) error
		Err() error
		Close() error
	}
	var err error
	if exportID != "" {
		rows, err = s.db.QueryContext(ctx, selectMemoriesSQL+" WHERE export_id = ? ORDER BY timestamp DESC", exportID)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, apperror.Store("query memories", err)
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		m, err := s.scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PendingOrFailedMemories returns memories whose download status is Pending
// or Failed, the filter used by download_all_pending (spec.md §4.8).
func (s *Store) PendingOrFailedMemories(ctx context.Context) ([]models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, selectMemoriesSQL+`
		WHERE download_status IN ('Pending', 'Failed') ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, apperror.Store("query pending memories", err)
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		m, err := s.scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMemoryStatus persists a memory's download status and, if set, its
// local media path — the per-step persistence the downloader performs at
// each protocol stage (spec.md §4.8).
func (s *Store) UpdateMemoryStatus(ctx context.Context, id string, status models.DownloadStatus, mediaPath *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE memories SET download_status = ?, media_path = COALESCE(?, media_path) WHERE id = ?
	`, string(status), mediaPath, id)
	if err != nil {
		return apperror.Store("update memory status", err)
	}
	return nil
}
