package jsonparsers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %q: %v", name, err)
	}
	return path
}

func TestReadOptionalReturnsFalseForMissingFile(t *testing.T) {
	_, ok, err := readOptional(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing file")
	}
}

func TestParseFriendsFlattensCategoriesAndDedupes(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "friends.json", `{
		"Friends": [{"Username": "alice", "Display Name": "Alice Smith"}, {"Username": "bob", "Display Name": ""}],
		"Blocked Users": [{"Username": "alice", "Display Name": "Alice Smith"}],
		"Deleted Friends": [],
		"Hidden Friend Suggestions": [{"Username": "", "Display Name": "nobody"}]
	}`)

	people, err := ParseFriends(path)
	if err != nil {
		t.Fatalf("ParseFriends: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("expected 2 deduped people, got %d: %+v", len(people), people)
	}
	if people[0].Username != "alice" || people[0].DisplayName == nil || *people[0].DisplayName != "Alice Smith" {
		t.Errorf("unexpected first person: %+v", people[0])
	}
	if people[1].Username != "bob" || people[1].DisplayName != nil {
		t.Errorf("expected bob with absent display name, got %+v", people[1])
	}
}

func TestParseFriendsToleratesMissingFile(t *testing.T) {
	people, err := ParseFriends(filepath.Join(t.TempDir(), "friends.json"))
	if err != nil || people != nil {
		t.Fatalf("expected nil, nil for missing file, got %+v, %v", people, err)
	}
}

func TestParseChatHistorySplitsMediaIDsAndDropsBadTimestamps(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "chat_history.json", `{
		"conv1": [
			{"From": "alice", "Created": "2023-06-15 14:30:00 UTC", "Content": "hi", "IsSender": true, "Media IDs": "ID1 | ID2", "Media Type": "MEDIA"},
			{"From": "bob", "Created": "not-a-timestamp", "Content": "bad", "IsSender": false}
		]
	}`)

	events, warnings, err := ParseChatHistory(path, "exp1")
	if err != nil {
		t.Fatalf("ParseChatHistory: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event (bad timestamp dropped), got %d", len(events))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for unparseable timestamp, got %d", len(warnings))
	}
	e := events[0]
	if e.ConversationID != "conv1" || e.Sender != "alice" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.EventType != "MEDIA" {
		t.Errorf("expected Media Type %q mapped onto EventType MEDIA, got %q", "MEDIA", e.EventType)
	}
	if e.Metadata == nil || len(e.Metadata.MediaIDs) != 2 || e.Metadata.MediaIDs[0] != "ID1" || e.Metadata.MediaIDs[1] != "ID2" {
		t.Errorf("expected split media ids, got %+v", e.Metadata)
	}
}

func TestParseChatHistoryDefaultsToTextWhenMediaTypeAbsent(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "chat_history.json", `{
		"conv1": [
			{"From": "alice", "Created": "2023-06-15 14:30:00 UTC", "Content": "hi", "IsSender": true}
		]
	}`)

	events, _, err := ParseChatHistory(path, "exp1")
	if err != nil {
		t.Fatalf("ParseChatHistory: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "TEXT" {
		t.Fatalf("expected a single TEXT event, got %+v", events)
	}
}

func TestParseSnapHistoryPicksSnapVideoAndDirection(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "snap_history.json", `{
		"conv1": [
			{"From": "alice", "Media Type": "VIDEO", "Created": "2023-06-15 14:30:00 UTC", "IsSender": true, "Conversation Title": "Best Friends"},
			{"From": "bob", "Media Type": "IMAGE", "Created": "2023-06-15 14:31:00 UTC", "IsSender": false}
		]
	}`)

	events, warnings, err := ParseSnapHistory(path, "exp1")
	if err != nil {
		t.Fatalf("ParseSnapHistory: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != "SNAP_VIDEO" {
		t.Errorf("expected SNAP_VIDEO for video media type, got %q", events[0].EventType)
	}
	if events[0].Content == nil || *events[0].Content != "Sent a video snap" {
		t.Errorf("unexpected content: %+v", events[0].Content)
	}
	if events[0].Metadata == nil || events[0].Metadata.ConversationTitle == nil || *events[0].Metadata.ConversationTitle != "Best Friends" {
		t.Errorf("expected Conversation Title carried into metadata, got %+v", events[0].Metadata)
	}
	if events[1].EventType != "SNAP" {
		t.Errorf("expected SNAP for image media type, got %q", events[1].EventType)
	}
	if events[1].Content == nil || *events[1].Content != "Received a image snap" {
		t.Errorf("unexpected content: %+v", events[1].Content)
	}
}

func TestParseMemoriesParsesLocationAndMediaType(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "memories_history.json", `{
		"Saved Media": [
			{"Date": "2023-06-15 14:30:00 UTC", "Media Type": "VIDEO", "Download Link": "https://example.com/a", "Location": "Latitude, Longitude: 12.5, -45.25"},
			{"Date": "2023-06-15 15:00:00", "Media Type": "IMAGE"},
			{"Date": "garbage", "Media Type": "IMAGE"}
		]
	}`)

	memories, warnings, err := ParseMemories(path, "exp1")
	if err != nil {
		t.Fatalf("ParseMemories: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for unparseable date, got %d", len(warnings))
	}
	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
	m := memories[0]
	if m.MediaType != "Video" {
		t.Errorf("expected Video media type, got %q", m.MediaType)
	}
	if m.Latitude == nil || m.Longitude == nil || *m.Latitude != 12.5 || *m.Longitude != -45.25 {
		t.Errorf("unexpected coordinates: %+v", m)
	}
	if m.DownloadURL == nil || *m.DownloadURL != "https://example.com/a" {
		t.Errorf("unexpected download url: %+v", m.DownloadURL)
	}
	if memories[1].Timestamp.Hour() != 15 {
		t.Errorf("expected bare timestamp without UTC suffix to parse, got %+v", memories[1])
	}
}

func TestParseLocationRejectsUnrecognizedFormat(t *testing.T) {
	if _, _, ok := parseLocation("no location here"); ok {
		t.Fatal("expected parseLocation to fail on unrecognized text")
	}
}
