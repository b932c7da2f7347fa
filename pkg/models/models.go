// Package models holds the data entities shared across every snapindex
// component: the Store persists them, the parsers produce them, the
// orchestrator reconciles and links them.
package models

import "time"

// ExportSourceType is how an ExportSet arrived on disk.
type ExportSourceType string

const (
	SourceZip    ExportSourceType = "zip"
	SourceFolder ExportSourceType = "folder"
)

// ValidationStatus is the Detector's confidence that an ExportSet is a
// genuine, complete archive.
type ValidationStatus string

const (
	StatusValid      ValidationStatus = "valid"
	StatusIncomplete ValidationStatus = "incomplete"
	StatusCorrupted  ValidationStatus = "corrupted"
	StatusUnknown    ValidationStatus = "unknown"
)

// ExportSet is one import unit: one or more archive parts (or a single
// folder) that together make up one vendor export.
type ExportSet struct {
	ID               string
	SourcePaths      []string
	SourceType       ExportSourceType
	ExtractionPath   string
	CreationDate     *time.Time
	ValidationStatus ValidationStatus
}

// Person is a directory entry sourced from the friends file.
type Person struct {
	Username    string
	DisplayName *string
}

// Conversation is a chat thread.
type Conversation struct {
	ID            string
	DisplayName   *string
	Participants  []string
	LastEventAt   *time.Time
	MessageCount  int
	HasMedia      bool
}

// EventType is the closed set of chat-event kinds the source archive can
// contain.
type EventType string

const (
	EventText                     EventType = "TEXT"
	EventMedia                    EventType = "MEDIA"
	EventSnap                     EventType = "SNAP"
	EventSnapVideo                EventType = "SNAP_VIDEO"
	EventNote                     EventType = "NOTE"
	EventSticker                  EventType = "STICKER"
	EventShare                    EventType = "SHARE"
	EventMissedVideoChat          EventType = "MISSED_VIDEO_CHAT"
	EventMissedAudioChat          EventType = "MISSED_AUDIO_CHAT"
	EventStatusParticipantAdded   EventType = "STATUS_PARTICIPANT_ADDED"
	EventStatusParticipantRemoved EventType = "STATUS_PARTICIPANT_REMOVED"
	EventStatusConversationRename EventType = "STATUS_CONVERSATION_NAME_CHANGED"
	EventUnknown                  EventType = "UNKNOWN"
)

// mediaCarryingTypes is the set of event types the Media Linker will attach
// references to (spec.md §4.6).
var mediaCarryingTypes = map[EventType]bool{
	EventMedia:     true,
	EventNote:      true,
	EventSnap:      true,
	EventSnapVideo: true,
	EventSticker:   true,
}

// IsMediaCarrying reports whether events of this type are eligible for
// media linking.
func (t EventType) IsMediaCarrying() bool { return mediaCarryingTypes[t] }

// EventMetadata is the optional JSON blob attached to an Event.
type EventMetadata struct {
	MediaIDs          []string `json:"media_ids,omitempty"`
	ConversationTitle *string  `json:"conversation_title,omitempty"`
	IsSender          *bool    `json:"is_sender,omitempty"`
}

// Event is one chat item, the unit reconciled between the HTML and JSON
// sources and ultimately persisted to the Store.
type Event struct {
	ID               string
	Timestamp        time.Time
	Sender           string
	SenderName       string
	ExportID         string
	ConversationID   string
	Content          *string
	EventType        EventType
	MediaReferences  []string
	Metadata         *EventMetadata
}

// MediaType is the kind of media a Memory or unified-stream row carries.
type MediaType string

const (
	MediaImage MediaType = "Image"
	MediaVideo MediaType = "Video"
)

// DownloadStatus tracks a Memory's local-download lifecycle.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "Pending"
	DownloadDownloading DownloadStatus = "Downloading"
	DownloadDownloaded  DownloadStatus = "Downloaded"
	DownloadFailed      DownloadStatus = "Failed"
)

// Memory is a cloud-hosted media record, possibly downloaded locally.
type Memory struct {
	ID             string
	Timestamp      time.Time
	MediaType      MediaType
	Latitude       *float64
	Longitude      *float64
	MediaPath      *string
	ExportID       string
	DownloadURL    *string
	ProxyURL       *string
	DownloadStatus DownloadStatus
}

// ExportStats is the aggregate summary returned by get_export_stats.
type ExportStats struct {
	TotalMessages      int
	TotalConversations int
	TotalMemories      int
	TotalMediaFiles    int
	MissingMediaCount  int
	TopContacts        []ContactCount
	StartDate          *time.Time
	EndDate            *time.Time
}

// ContactCount is one entry of ExportStats.TopContacts.
type ContactCount struct {
	Name  string
	Count int
}

// IngestionProgress is the ingestion-progress event shape from spec.md §6.
type IngestionProgress struct {
	ExportID    string
	CurrentStep string
	Progress    float64
	Message     string
}

// IngestionResult is the ingestion-result event shape from spec.md §6.
type IngestionResult struct {
	ExportID            string
	ConversationsParsed int
	EventsParsed        int
	MemoriesParsed      int
	ParseFailures        int
	Warnings            []string
	Errors              []string
}

// ValidationReport is the detailed per-export integrity report (SPEC_FULL §4).
type ValidationReport struct {
	TotalHTMLFiles        int
	ParsedHTMLFiles       int
	TotalMediaReferenced  int
	MediaFound            int
	MediaMissing          int
	MissingFiles          []string
	Warnings              []string
}

// SearchResult is one row of search_messages.
type SearchResult struct {
	EventID          string
	ConversationID   string
	ConversationName string
	Sender           string
	SenderName       string
	Content          string
	Timestamp        time.Time
	EventType        EventType
}

// MediaSource distinguishes where a unified-media-stream row's bytes live.
type MediaSource string

const (
	MediaSourceLocal MediaSource = "local"
	MediaSourceCloud MediaSource = "cloud"
)

// MediaStreamEntry is one row of get_unified_media_stream.
type MediaStreamEntry struct {
	ID        string
	Path      string
	MediaType MediaType
	Timestamp time.Time
	Source    MediaSource
}

// MessagePage is the result of get_messages_page.
type MessagePage struct {
	Messages   []Event
	TotalCount int
	HasMore    bool
}

// PaginatedMedia is the result of get_unified_media_stream.
type PaginatedMedia struct {
	Items      []MediaStreamEntry
	TotalCount int
	HasMore    bool
}

// DownloadProgress is the download-progress event shape from spec.md §6.
type DownloadProgress struct {
	MemoryID         string
	Progress         float64
	Status           DownloadStatus
	BytesDownloaded  int64
	TotalBytes       *int64
}
