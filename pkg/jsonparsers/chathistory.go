package jsonparsers

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/chattime"
	"github.com/snapindex/snapindex/pkg/models"
)

type chatHistoryRecord struct {
	From               string `json:"From"`
	MediaType          string `json:"Media Type"`
	Created            string `json:"Created"`
	Content            string `json:"Content"`
	ConversationTitle  string `json:"Conversation Title"`
	IsSender           bool   `json:"IsSender"`
	MediaIDs           string `json:"Media IDs"`
}

type chatHistoryDocument map[string][]chatHistoryRecord

// ParseChatHistory parses the top-level object keyed by conversation id
// into events; records that fail to parse their timestamp are dropped
// (spec.md §4.5).
func ParseChatHistory(path, exportID string) ([]models.Event, []string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	var doc chatHistoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, apperror.JSON("parse chat_history.json", err)
	}

	var events []models.Event
	var warnings []string
	for conversationID, records := range doc {
		for _, r := range records {
			ts, ok := chattime.TryParse(r.Created)
			if !ok {
				warnings = append(warnings, "chat_history: unparseable timestamp for conversation "+conversationID)
				continue
			}
			content := r.Content
			isSender := r.IsSender
			meta := &models.EventMetadata{IsSender: &isSender}
			if r.MediaIDs != "" {
				meta.MediaIDs = splitPipe(r.MediaIDs)
			}
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
				EventType:      eventTypeFromMediaType(r.MediaType),
				Metadata:       meta,
			})
		}
	}
	return events, warnings, nil
}

// mediaTypeEventTypes maps the record's Media Type field onto the closed
// EventType enumeration (spec.md §3, §4.5). A record with no recognized
// media type is an ordinary text message.
var mediaTypeEventTypes = map[string]models.EventType{
	"MEDIA":             models.EventMedia,
	"NOTE":              models.EventNote,
	"SNAP":              models.EventSnap,
	"SNAP_VIDEO":        models.EventSnapVideo,
	"STICKER":           models.EventSticker,
	"SHARE":             models.EventShare,
	"MISSED_VIDEO_CHAT": models.EventMissedVideoChat,
	"MISSED_AUDIO_CHAT": models.EventMissedAudioChat,
}

// eventTypeFromMediaType maps a chat-history record's Media Type field onto
// its EventType, the way the original sets event_type = media_type_str.
func eventTypeFromMediaType(mediaType string) models.EventType {
	if et, ok := mediaTypeEventTypes[strings.ToUpper(strings.TrimSpace(mediaType))]; ok {
		return et
	}
	return models.EventText
}

// splitPipe splits a " | "-separated Media IDs field (spec.md §4.5).
func splitPipe(s string) []string {
	parts := strings.Split(s, " | ")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
