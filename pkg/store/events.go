package store

import (
	"context"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// InsertEvents batch-inserts events inside a single transaction, deleting
// and re-inserting each event's FTS row alongside it. Delete-then-insert is
// the only supported way to rebuild the FTS row: the fts5 virtual table
// rejects REPLACE semantics (spec.md §4.1, §9).
func (s *Store) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin events tx", err)
	}
	defer tx.Rollback()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, timestamp, sender, sender_name, export_id, conversation_id, content, event_type, media_references, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			sender = excluded.sender,
			sender_name = excluded.sender_name,
			export_id = excluded.export_id,
			conversation_id = excluded.conversation_id,
			content = excluded.content,
			event_type = excluded.event_type,
			media_references = excluded.media_references,
			metadata = excluded.metadata
	`)
	if err != nil {
		return apperror.Store("prepare events insert", err)
	}
	defer insertStmt.Close()

	deleteFTSStmt, err := tx.PrepareContext(ctx, `DELETE FROM events_fts WHERE event_id = ?`)
	if err != nil {
		return apperror.Store("prepare fts delete", err)
	}
	defer deleteFTSStmt.Close()

	insertFTSStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events_fts (content, event_id, conversation_id, sender) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return apperror.Store("prepare fts insert", err)
	}
	defer insertFTSStmt.Close()

	for _, e := range events {
		refs := e.MediaReferences
		if refs == nil {
			refs = []string{}
		}
		mediaRefs, err := marshalJSON(refs)
		if err != nil {
			return apperror.JSON("marshal media_references", err)
		}
		var metadata *string
		if e.Metadata != nil {
			m, err := marshalJSON(e.Metadata)
			if err != nil {
				return apperror.JSON("marshal metadata", err)
			}
			metadata = &m
		}
		var convID any
		if e.ConversationID != "" {
			convID = e.ConversationID
		}
		if _, err := insertStmt.ExecContext(ctx, e.ID, formatTime(e.Timestamp), e.Sender, e.SenderName,
			e.ExportID, convID, e.Content, string(e.EventType), mediaRefs, metadata); err != nil {
			return apperror.Store("insert event "+e.ID, err)
		}
		if _, err := deleteFTSStmt.ExecContext(ctx, e.ID); err != nil {
			return apperror.Store("delete fts row "+e.ID, err)
		}
		if e.Content != nil && *e.Content != "" {
			if _, err := insertFTSStmt.ExecContext(ctx, *e.Content, e.ID, e.ConversationID, e.Sender); err != nil {
				return apperror.Store("insert fts row "+e.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit events tx", err)
	}
	return nil
}

func scanEvent(scan func(dest ...any) error, warn func(string)) (models.Event, error) {
	var (
		e          models.Event
		timestamp  string
		convID     *string
		content    *string
		mediaRefs  string
		metadata   *string
	)
	if err := scan(&e.ID, &timestamp, &e.Sender, &e.SenderName, &e.ExportID, &convID, &content,
		&e.EventType, &mediaRefs, &metadata); err != nil {
		return e, apperror.Store("scan event", err)
	}
	e.Timestamp = parseTime(timestamp, warn)
	if convID != nil {
		e.ConversationID = *convID
	}
	e.Content = content
	refs, err := unmarshalJSON[[]string](mediaRefs)
	if err != nil {
		return e, apperror.JSON("unmarshal media_references", err)
	}
	e.MediaReferences = refs
	if metadata != nil {
		m, err := unmarshalJSON[models.EventMetadata](*metadata)
		if err != nil {
			return e, apperror.JSON("unmarshal metadata", err)
		}
		e.Metadata = &m
	}
	return e, nil
}

const selectEventsSQL = `
	SELECT id, timestamp, sender, sender_name, export_id, conversation_id, content, event_type, media_references, metadata
	FROM events WHERE conversation_id = ? ORDER BY timestamp ASC
`

// GetMessages returns the full, timestamp-ordered event list for a
// conversation.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEventsSQL, conversationID)
	if err != nil {
		return nil, apperror.Store("query messages", err)
	}
	defer rows.Close()
	return s.scanEventRows(rows)
}

func (s *Store) scanEventRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]models.Event, error) {
	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan, s.logWarn)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// clampOffset and clampLimit implement spec.md §4.1's pagination law:
// offset clamped to >= 0, limit clamped to [lo, hi].
func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func clampLimit(limit, lo, hi int) int {
	if limit < lo {
		return lo
	}
	if limit > hi {
		return hi
	}
	return limit
}

// GetMessagesPage returns a page of a conversation's events, clamping
// offset >= 0 and limit to [1, 2000] (spec.md §4.1, §8).
func (s *Store) GetMessagesPage(ctx context.Context, conversationID string, offset, limit int) (models.MessagePage, error) {
	offset = clampOffset(offset)
	limit = clampLimit(limit, 1, 2000)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE conversation_id = ?`, conversationID).Scan(&total); err != nil {
		return models.MessagePage{}, apperror.Store("count messages", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, sender, sender_name, export_id, conversation_id, content, event_type, media_references, metadata
		FROM events WHERE conversation_id = ? ORDER BY timestamp ASC LIMIT ? OFFSET ?
	`, conversationID, limit, offset)
	if err != nil {
		return models.MessagePage{}, apperror.Store("query messages page", err)
	}
	defer rows.Close()

	events, err := s.scanEventRows(rows)
	if err != nil {
		return models.MessagePage{}, err
	}
	return models.MessagePage{
		Messages:   events,
		TotalCount: total,
		HasMore:    offset+limit < total,
	}, nil
}

// GetActivityDates returns the ascending list of distinct YYYY-MM-DD
// prefixes among a conversation's events.
func (s *Store) GetActivityDates(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT substr(timestamp, 1, 10) FROM events
		WHERE conversation_id = ? ORDER BY 1 ASC
	`, conversationID)
	if err != nil {
		return nil, apperror.Store("query activity dates", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, apperror.Store("scan activity date", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetMessageIndexAtDate returns the count of events strictly before
// midnight UTC on the given YYYY-MM-DD date, used to jump a reader's
// position to that date.
func (s *Store) GetMessageIndexAtDate(ctx context.Context, conversationID, date string) (int, error) {
	cutoff := date + "T00:00:00.000Z"
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE conversation_id = ? AND timestamp < ?
	`, conversationID, cutoff).Scan(&n); err != nil {
		return 0, apperror.Store("query message index at date", err)
	}
	return n, nil
}
