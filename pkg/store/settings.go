package store

import (
	"context"
	"database/sql"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// GetSetting returns a setting's value, and whether it was present.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperror.Store("get setting "+key, err)
	}
	return value, true, nil
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return apperror.Store("set setting "+key, err)
	}
	return nil
}

// ResetData removes every row from every table, used by the reset_data
// command (spec.md §6): unlike deleting the database file, this preserves
// the open handle so a subsequent ingest can reuse the connection pool.
func (s *Store) ResetData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin reset tx", err)
	}
	defer tx.Rollback()
	tables := []string{"events_fts", "events", "memories", "conversations", "people", "exports"}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return apperror.Store("clear table "+t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit reset tx", err)
	}
	return nil
}
