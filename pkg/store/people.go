package store

import (
	"context"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// InsertPeople batch-inserts the friends-file directory inside a single
// transaction with a single prepared statement, per spec.md §4.1.
func (s *Store) InsertPeople(ctx context.Context, people []models.Person) error {
	if len(people) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin people tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO people (username, display_name) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET display_name = excluded.display_name
	`)
	if err != nil {
		return apperror.Store("prepare people insert", err)
	}
	defer stmt.Close()

	for _, p := range people {
		if _, err := stmt.ExecContext(ctx, p.Username, p.DisplayName); err != nil {
			return apperror.Store("insert person "+p.Username, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit people tx", err)
	}
	return nil
}
