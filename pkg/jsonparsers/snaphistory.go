package jsonparsers

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/chattime"
	"github.com/snapindex/snapindex/pkg/models"
)

type snapHistoryRecord struct {
	From              string `json:"From"`
	MediaType         string `json:"Media Type"`
	Created           string `json:"Created"`
	ConversationTitle string `json:"Conversation Title"`
	IsSender          bool   `json:"IsSender"`
}

type snapHistoryDocument map[string][]snapHistoryRecord

// ParseSnapHistory parses the same shape as chat history but synthesizes
// content and picks SNAP/SNAP_VIDEO by media kind; no media IDs are carried
// (spec.md §4.5).
func ParseSnapHistory(path, exportID string) ([]models.Event, []string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	var doc snapHistoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, apperror.JSON("parse snap_history.json", err)
	}

	var events []models.Event
	var warnings []string
	for conversationID, records := range doc {
		for _, r := range records {
			ts, ok := chattime.TryParse(r.Created)
			if !ok {
				warnings = append(warnings, "snap_history: unparseable timestamp for conversation "+conversationID)
				continue
			}
			eventType := models.EventSnap
			if strings.EqualFold(r.MediaType, "VIDEO") {
				eventType = models.EventSnapVideo
			}
			direction := "Received"
			if r.IsSender {
				direction = "Sent"
			}
			mediaWord := strings.ToLower(r.MediaType)
			if mediaWord == "" {
				mediaWord = "image"
			}
			content := direction + " a " + mediaWord + " snap"
			isSender := r.IsSender

			meta := &models.EventMetadata{IsSender: &isSender}
			if r.ConversationTitle != "" {
				title := r.ConversationTitle
				meta.ConversationTitle = &title
			}

			events = append(events, models.Event{
				ID:             uuid.NewString(),
				Timestamp:      ts,
				Sender:         r.From,
				SenderName:     r.From,
				ExportID:       exportID,
				ConversationID: conversationID,
				Content:        &content,
				EventType:      eventType,
				Metadata:       meta,
			})
		}
	}
	return events, warnings, nil
}
