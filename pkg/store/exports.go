package store

import (
	"context"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// InsertExport persists the ExportSet row at the start of ingestion. It is
// never mutated after commit (spec.md §3).
func (s *Store) InsertExport(ctx context.Context, e models.ExportSet) error {
	if len(e.SourcePaths) == 0 {
		// spec.md §9 Open Question: an empty source_paths list is a hard
		// error; it is rejected here, when ingestion stores the export.
		return apperror.Validation("export set has no source paths")
	}
	paths, err := marshalJSON(e.SourcePaths)
	if err != nil {
		return apperror.JSON("marshal source_paths", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exports (id, source_paths, source_type, extraction_path, creation_date, validation_status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_paths = excluded.source_paths,
			source_type = excluded.source_type,
			extraction_path = excluded.extraction_path,
			creation_date = excluded.creation_date,
			validation_status = excluded.validation_status
	`, e.ID, paths, string(e.SourceType), e.ExtractionPath, formatTimePtr(e.CreationDate), string(e.ValidationStatus))
	if err != nil {
		return apperror.Store("insert export", err)
	}
	return nil
}

// GetExports lists every stored ExportSet.
func (s *Store) GetExports(ctx context.Context) ([]models.ExportSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_paths, source_type, extraction_path, creation_date, validation_status
		FROM exports ORDER BY rowid`)
	if err != nil {
		return nil, apperror.Store("query exports", err)
	}
	defer rows.Close()

	var out []models.ExportSet
	for rows.Next() {
		var (
			e              models.ExportSet
			sourcePaths    string
			sourceType     string
			extractionPath *string
			creationDate   *string
			validation     string
		)
		if err := rows.Scan(&e.ID, &sourcePaths, &sourceType, &extractionPath, &creationDate, &validation); err != nil {
			return nil, apperror.Store("scan export", err)
		}
		paths, err := unmarshalJSON[[]string](sourcePaths)
		if err != nil {
			return nil, apperror.JSON("unmarshal source_paths", err)
		}
		e.SourcePaths = paths
		e.SourceType = models.ExportSourceType(sourceType)
		e.ValidationStatus = models.ValidationStatus(validation)
		if extractionPath != nil {
			e.ExtractionPath = *extractionPath
		}
		if creationDate != nil {
			t := parseTime(*creationDate, s.logWarn)
			e.CreationDate = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) logWarn(msg string) {
	s.log.Warn().Msg(msg)
}
