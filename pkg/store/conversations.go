package store

import (
	"context"
	"time"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// InsertConversations batch-inserts conversation rows in a single
// transaction over a single prepared statement.
func (s *Store) InsertConversations(ctx context.Context, convs []models.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin conversations tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conversations (id, display_name, participants, last_event_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			participants = excluded.participants,
			last_event_at = excluded.last_event_at
	`)
	if err != nil {
		return apperror.Store("prepare conversations insert", err)
	}
	defer stmt.Close()

	for _, c := range convs {
		participants, err := marshalJSON(c.Participants)
		if err != nil {
			return apperror.JSON("marshal participants", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DisplayName, participants, formatTimePtr(c.LastEventAt)); err != nil {
			return apperror.Store("insert conversation "+c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit conversations tx", err)
	}
	return nil
}

// getConversationsSQL is the resolved-display-name, aggregated-count
// projection get_conversations computes in one grouped-subquery statement
// (spec.md §4.1: "not N+1 subqueries").
const getConversationsSQL = `
SELECT
	c.id,
	COALESCE(p.display_name, c.display_name) AS display_name,
	c.participants,
	c.last_event_at,
	COALESCE(agg.message_count, 0) AS message_count,
	COALESCE(agg.has_media, 0) AS has_media
FROM conversations c
LEFT JOIN people p ON p.username = c.id
LEFT JOIN (
	SELECT
		conversation_id,
		COUNT(*) AS message_count,
		MAX(CASE WHEN media_references != '[]' THEN 1 ELSE 0 END) AS has_media
	FROM events
	GROUP BY conversation_id
) agg ON agg.conversation_id = c.id
ORDER BY c.last_event_at DESC
`

// GetConversations returns every conversation with its person-overridden
// display name and aggregated stats, computed in a single statement.
func (s *Store) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, getConversationsSQL)
	if err != nil {
		return nil, apperror.Store("query conversations", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var (
			c            models.Conversation
			displayName  *string
			participants string
			lastEventAt  *string
			hasMedia     int
		)
		if err := rows.Scan(&c.ID, &displayName, &participants, &lastEventAt, &c.MessageCount, &hasMedia); err != nil {
			return nil, apperror.Store("scan conversation", err)
		}
		c.DisplayName = displayName
		c.HasMedia = hasMedia != 0
		parts, err := unmarshalJSON[[]string](participants)
		if err != nil {
			return nil, apperror.JSON("unmarshal participants", err)
		}
		c.Participants = parts
		if lastEventAt != nil {
			t := parseTime(*lastEventAt, s.logWarn)
			c.LastEventAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecomputeConversationAggregates updates last_event_at after a batch of
// events has been inserted or reconciled, moving it forward to the latest
// event timestamp of each conversation in events, matching spec.md §4.7's
// "recomputed in one pass over events" requirement for last_event_at. It
// does not touch message_count or has_media: those are not stored, and
// GetConversations derives them live from the events table.
func (s *Store) RecomputeConversationAggregates(ctx context.Context, events []models.Event) error {
	latest := map[string]time.Time{}
	for _, e := range events {
		if e.ConversationID == "" {
			continue
		}
		if cur, ok := latest[e.ConversationID]; !ok || e.Timestamp.After(cur) {
			latest[e.ConversationID] = e.Timestamp
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin aggregates tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE conversations SET last_event_at = ?
		WHERE id = ? AND (last_event_at IS NULL OR last_event_at < ?)
	`)
	if err != nil {
		return apperror.Store("prepare aggregates update", err)
	}
	defer stmt.Close()

	for convID, ts := range latest {
		formatted := formatTime(ts)
		if _, err := stmt.ExecContext(ctx, formatted, convID, formatted); err != nil {
			return apperror.Store("update conversation aggregate "+convID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Store("commit aggregates tx", err)
	}
	return nil
}
