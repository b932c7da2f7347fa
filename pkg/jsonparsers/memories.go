package jsonparsers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

type savedMediaEntry struct {
	Date        string `json:"Date"`
	MediaType   string `json:"Media Type"`
	DownloadURL string `json:"Download Link"`
	Location    string `json:"Location"`
}

type memoriesDocument struct {
	SavedMedia []savedMediaEntry `json:"Saved Media"`
}

// memoryTimestampFormat is the single layout memories_history.json uses
// (spec.md §4.5), distinct from the chat timestamp formats. The trailing
// " UTC" suffix, when present, is stripped before parsing.
const memoryTimestampFormat = "2006-01-02 15:04:05"

// ParseMemories flattens "Saved Media" into memory records, parsing the UTC
// date, media type, and an optional lat/lon pair (spec.md §4.5).
func ParseMemories(path, exportID string) ([]models.Memory, []string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	var doc memoriesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, apperror.JSON("parse memories_history.json", err)
	}

	var memories []models.Memory
	var warnings []string
	for _, entry := range doc.SavedMedia {
		ts, err := parseMemoryTimestamp(entry.Date)
		if err != nil {
			warnings = append(warnings, "memories: unparseable timestamp "+entry.Date)
			continue
		}
		mediaType := models.MediaImage
		if strings.Contains(strings.ToUpper(entry.MediaType), "VIDEO") {
			mediaType = models.MediaVideo
		}

		m := models.Memory{
			ID:             uuid.NewString(),
			Timestamp:      ts,
			MediaType:      mediaType,
			ExportID:       exportID,
			DownloadStatus: models.DownloadPending,
		}
		if entry.DownloadURL != "" {
			url := entry.DownloadURL
			m.DownloadURL = &url
		}
		if lat, lon, ok := parseLocation(entry.Location); ok {
			m.Latitude = &lat
			m.Longitude = &lon
		}
		memories = append(memories, m)
	}
	return memories, warnings, nil
}

func parseMemoryTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), " UTC")
	t, err := time.Parse(memoryTimestampFormat, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseLocation parses a "Latitude, Longitude: a, b" string (spec.md §4.5).
func parseLocation(raw string) (float64, float64, bool) {
	const prefix = "Latitude, Longitude: "
	idx := strings.Index(raw, prefix)
	if idx < 0 {
		return 0, 0, false
	}
	rest := raw[idx+len(prefix):]
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
