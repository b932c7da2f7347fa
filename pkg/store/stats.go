package store

import (
	"context"
	"strconv"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// GetExportStats computes totals, top-5 senders by event count (joined
// against people for display-name resolution), and the timestamp range, in
// a handful of aggregate queries (spec.md §4.1).
func (s *Store) GetExportStats(ctx context.Context, exportID string) (models.ExportStats, error) {
	var stats models.ExportStats

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE export_id = ?`, exportID).Scan(&stats.TotalMessages); err != nil {
		return stats, apperror.Store("count messages", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT conversation_id) FROM events WHERE export_id = ? AND conversation_id IS NOT NULL`,
		exportID).Scan(&stats.TotalConversations); err != nil {
		return stats, apperror.Store("count conversations", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE export_id = ?`, exportID).Scan(&stats.TotalMemories); err != nil {
		return stats, apperror.Store("count memories", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE export_id = ? AND media_references != '[]'
	`, exportID).Scan(&stats.TotalMediaFiles); err != nil {
		return stats, apperror.Store("count media files", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events
		WHERE export_id = ? AND event_type = ? AND media_references = '[]'
	`, exportID, string(models.EventMedia)).Scan(&stats.MissingMediaCount); err != nil {
		return stats, apperror.Store("count missing media", err)
	}

	var start, end *string
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM events WHERE export_id = ?`, exportID).Scan(&start, &end); err != nil {
		return stats, apperror.Store("query timestamp range", err)
	}
	if start != nil {
		t := parseTime(*start, s.logWarn)
		stats.StartDate = &t
	}
	if end != nil {
		t := parseTime(*end, s.logWarn)
		stats.EndDate = &t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(p.display_name, e.sender_name, e.sender) AS name, COUNT(*) AS n
		FROM events e
		LEFT JOIN people p ON p.username = e.sender
		WHERE e.export_id = ?
		GROUP BY e.sender
		ORDER BY n DESC
		LIMIT 5
	`, exportID)
	if err != nil {
		return stats, apperror.Store("query top contacts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.ContactCount
		if err := rows.Scan(&cc.Name, &cc.Count); err != nil {
			return stats, apperror.Store("scan top contact", err)
		}
		stats.TopContacts = append(stats.TopContacts, cc)
	}
	if err := rows.Err(); err != nil {
		return stats, apperror.Store("iterate top contacts", err)
	}
	return stats, nil
}

// GetUnifiedMediaStream unions locally-linked media events and downloaded
// memories into a single timestamp-descending stream, per spec.md §4.1.
// Video detection: any event type containing "VIDEO", or a memory media
// type equal to Video.
func (s *Store) GetUnifiedMediaStream(ctx context.Context, limit, offset int) (models.PaginatedMedia, error) {
	offset = clampOffset(offset)
	limit = clampLimit(limit, 1, 1000)

	const unionSQL = `
		SELECT id, path, media_type, timestamp, source FROM (
			SELECT
				e.id AS id,
				je.value AS path,
				CASE WHEN instr(e.event_type, 'VIDEO') > 0 THEN 'Video' ELSE 'Image' END AS media_type,
				e.timestamp AS timestamp,
				'local' AS source
			FROM events e, json_each(e.media_references) je
			WHERE e.media_references != '[]'
			UNION ALL
			SELECT
				m.id AS id,
				m.media_path AS path,
				m.media_type AS media_type,
				m.timestamp AS timestamp,
				'cloud' AS source
			FROM memories m
			WHERE m.media_path IS NOT NULL
		)
		ORDER BY timestamp DESC
	`
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (`+unionSQL+`)`).Scan(&total); err != nil {
		return models.PaginatedMedia{}, apperror.Store("count unified media", err)
	}

	rows, err := s.db.QueryContext(ctx, unionSQL+" LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return models.PaginatedMedia{}, apperror.Store("query unified media", err)
	}
	defer rows.Close()

	var out []models.MediaStreamEntry
	for rows.Next() {
		var (
			e         models.MediaStreamEntry
			mediaType string
			timestamp string
		)
		if err := rows.Scan(&e.ID, &e.Path, &mediaType, &timestamp, &e.Source); err != nil {
			return models.PaginatedMedia{}, apperror.Store("scan unified media row", err)
		}
		e.MediaType = models.MediaType(mediaType)
		e.Timestamp = parseTime(timestamp, s.logWarn)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return models.PaginatedMedia{}, apperror.Store("iterate unified media", err)
	}
	return models.PaginatedMedia{
		Items:      out,
		TotalCount: total,
		HasMore:    offset+limit < total,
	}, nil
}

// GetValidationReport computes per-export integrity stats: MEDIA-typed
// event counts, how many carry linked files, and how many conversations are
// empty, producing warning strings only when the relevant count is positive
// (spec.md §4.1, SPEC_FULL §4).
func (s *Store) GetValidationReport(ctx context.Context, exportID string) (models.ValidationReport, error) {
	var report models.ValidationReport

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE export_id = ? AND event_type = ?
	`, exportID, string(models.EventMedia)).Scan(&report.TotalMediaReferenced); err != nil {
		return report, apperror.Store("count media events", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE export_id = ? AND event_type = ? AND media_references != '[]'
	`, exportID, string(models.EventMedia)).Scan(&report.MediaFound); err != nil {
		return report, apperror.Store("count linked media events", err)
	}
	report.MediaMissing = report.TotalMediaReferenced - report.MediaFound

	var emptyConvs int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversations c
		WHERE NOT EXISTS (SELECT 1 FROM events e WHERE e.conversation_id = c.id)
	`).Scan(&emptyConvs); err != nil {
		return report, apperror.Store("count empty conversations", err)
	}

	missingRows, err := s.db.QueryContext(ctx, `
		SELECT metadata FROM events WHERE export_id = ? AND event_type = ? AND media_references = '[]' AND metadata IS NOT NULL
	`, exportID, string(models.EventMedia))
	if err != nil {
		return report, apperror.Store("query unlinked media events", err)
	}
	defer missingRows.Close()
	for missingRows.Next() {
		var metadata string
		if err := missingRows.Scan(&metadata); err != nil {
			return report, apperror.Store("scan unlinked media metadata", err)
		}
		meta, err := unmarshalJSON[models.EventMetadata](metadata)
		if err != nil {
			return report, apperror.JSON("unmarshal unlinked media metadata", err)
		}
		report.MissingFiles = append(report.MissingFiles, meta.MediaIDs...)
	}
	if err := missingRows.Err(); err != nil {
		return report, apperror.Store("iterate unlinked media events", err)
	}

	totalHTML, _, err := s.GetSetting(ctx, htmlTotalSettingKey(exportID))
	if err != nil {
		return report, err
	}
	parsedHTML, _, err := s.GetSetting(ctx, htmlParsedSettingKey(exportID))
	if err != nil {
		return report, err
	}
	report.TotalHTMLFiles, _ = strconv.Atoi(totalHTML)
	report.ParsedHTMLFiles, _ = strconv.Atoi(parsedHTML)

	if report.MediaMissing > 0 {
		report.Warnings = append(report.Warnings, itoaWarning(report.MediaMissing, "media file(s) referenced but not found on disk"))
	}
	if emptyConvs > 0 {
		report.Warnings = append(report.Warnings, itoaWarning(emptyConvs, "conversation(s) have no events"))
	}
	return report, nil
}

// htmlTotalSettingKey and htmlParsedSettingKey namespace the per-export HTML
// file counts the orchestrator records via RecordHTMLFileCounts at the end
// of a run, since that count isn't otherwise derivable from the persisted
// rows.
func htmlTotalSettingKey(exportID string) string  { return "html_total:" + exportID }
func htmlParsedSettingKey(exportID string) string { return "html_parsed:" + exportID }

// RecordHTMLFileCounts persists the HTML phase's file counts for later
// retrieval by GetValidationReport.
func (s *Store) RecordHTMLFileCounts(ctx context.Context, exportID string, total, parsed int) error {
	if err := s.SetSetting(ctx, htmlTotalSettingKey(exportID), strconv.Itoa(total)); err != nil {
		return err
	}
	return s.SetSetting(ctx, htmlParsedSettingKey(exportID), strconv.Itoa(parsed))
}

func itoaWarning(n int, suffix string) string {
	return strconv.Itoa(n) + " " + suffix
}
