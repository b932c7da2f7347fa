package store

import (
	"context"
	"strings"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// SanitizeFTSQuery tokenizes a user query into whitespace-separated words,
// doubling any embedded double quote and wrapping each word in quotes, then
// joins with spaces. This is the only defense against FTS5 query-language
// injection (spec.md §4.1, §8 scenario 1).
func SanitizeFTSQuery(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		escaped := strings.ReplaceAll(w, `"`, `""`)
		quoted[i] = `"` + escaped + `"`
	}
	return strings.Join(quoted, " ")
}

// maxSearchQueryLen caps raw query length before sanitization (spec.md §6).
const maxSearchQueryLen = 500

// SearchMessages runs a sanitized full-text query, ordered by the engine's
// built-in relevance rank. An empty sanitized query returns an empty result
// without touching the store (spec.md §4.1).
func (s *Store) SearchMessages(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if len(query) > maxSearchQueryLen {
		return nil, apperror.Validation("search query exceeds 500 characters")
	}
	sanitized := SanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, nil
	}
	limit = clampLimit(limit, 1, 500)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			e.id, e.conversation_id, COALESCE(p.display_name, c.display_name, c.id, ''),
			e.sender, e.sender_name, f.content, e.timestamp, e.event_type
		FROM events_fts f
		JOIN events e ON e.id = f.event_id
		LEFT JOIN conversations c ON c.id = e.conversation_id
		LEFT JOIN people p ON p.username = c.id
		WHERE events_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, apperror.Store("search messages", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var (
			r         models.SearchResult
			convID    *string
			timestamp string
		)
		if err := rows.Scan(&r.EventID, &convID, &r.ConversationName, &r.Sender, &r.SenderName,
			&r.Content, &timestamp, &r.EventType); err != nil {
			return nil, apperror.Store("scan search result", err)
		}
		if convID != nil {
			r.ConversationID = *convID
		}
		r.Timestamp = parseTime(timestamp, s.logWarn)
		out = append(out, r)
	}
	return out, rows.Err()
}
