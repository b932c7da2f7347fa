package ingestion

import (
	"testing"
	"time"

	"github.com/snapindex/snapindex/pkg/models"
)

func strPtr(s string) *string { return &s }

// Scenario 6: reconciliation merges a matching JSON event's metadata onto
// the HTML event rather than duplicating it, within the 2s window.
func TestReconcileMergesWithinWindow(t *testing.T) {
	base := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	htmlEvents := []models.Event{
		{ID: "h1", ConversationID: "conv1", Sender: "alice", Timestamp: base, Content: strPtr("hello")},
	}
	isSender := true
	jsonEvents := []models.Event{
		{ID: "j1", ConversationID: "conv1", Sender: "alice", Timestamp: base.Add(1500 * time.Millisecond),
			Metadata: &models.EventMetadata{IsSender: &isSender}},
	}
	conversations := map[string]models.Conversation{"conv1": {ID: "conv1"}}

	merged := reconcile(htmlEvents, jsonEvents, conversations)

	if len(merged) != 1 {
		t.Fatalf("expected merge to keep a single event, got %d", len(merged))
	}
	if merged[0].Metadata == nil || merged[0].Metadata.IsSender == nil || !*merged[0].Metadata.IsSender {
		t.Fatalf("expected html event to receive json metadata, got %+v", merged[0].Metadata)
	}
	if merged[0].ID != "h1" {
		t.Fatalf("expected the html event to survive, got id %q", merged[0].ID)
	}
}

func TestReconcileAppendsUnmatchedBeyondWindow(t *testing.T) {
	base := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	htmlEvents := []models.Event{
		{ID: "h1", ConversationID: "conv1", Sender: "alice", Timestamp: base},
	}
	jsonEvents := []models.Event{
		{ID: "j1", ConversationID: "conv1", Sender: "alice", Timestamp: base.Add(10 * time.Second)},
	}
	conversations := map[string]models.Conversation{"conv1": {ID: "conv1"}}

	merged := reconcile(htmlEvents, jsonEvents, conversations)

	if len(merged) != 2 {
		t.Fatalf("expected unmatched json event appended, total count = %d", len(merged))
	}
}

func TestReconcileSynthesizesMissingConversation(t *testing.T) {
	base := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	jsonEvents := []models.Event{
		{ID: "j1", ConversationID: "conv-new", Sender: "alice", Timestamp: base},
	}
	conversations := map[string]models.Conversation{}

	reconcile(nil, jsonEvents, conversations)

	if _, ok := conversations["conv-new"]; !ok {
		t.Fatal("expected reconcile to synthesize the missing conversation")
	}
}

func TestReconcileDoesNotMatchEventsAlreadyCarryingMetadata(t *testing.T) {
	base := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	isSenderA := true
	htmlEvents := []models.Event{
		{ID: "h1", ConversationID: "conv1", Sender: "alice", Timestamp: base, Metadata: &models.EventMetadata{IsSender: &isSenderA}},
	}
	jsonEvents := []models.Event{
		{ID: "j1", ConversationID: "conv1", Sender: "alice", Timestamp: base},
	}
	conversations := map[string]models.Conversation{"conv1": {ID: "conv1"}}

	merged := reconcile(htmlEvents, jsonEvents, conversations)

	if len(merged) != 2 {
		t.Fatalf("expected json event appended rather than re-merged, got %d events", len(merged))
	}
}

func TestAppendSynthesizingAlwaysAppendsAndSynthesizesConversations(t *testing.T) {
	conversations := map[string]models.Conversation{}
	existing := []models.Event{{ID: "h1", ConversationID: "conv1"}}
	newEvents := []models.Event{{ID: "s1", ConversationID: "conv2"}}

	out := appendSynthesizing(existing, newEvents, conversations)

	if len(out) != 2 {
		t.Fatalf("expected 2 total events, got %d", len(out))
	}
	if _, ok := conversations["conv2"]; !ok {
		t.Fatal("expected conv2 synthesized")
	}
}

func TestRecomputeConversationStatsCountsMessagesAndMedia(t *testing.T) {
	base := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	conversations := map[string]models.Conversation{"conv1": {ID: "conv1"}}
	events := []models.Event{
		{ConversationID: "conv1", Timestamp: base},
		{ConversationID: "conv1", Timestamp: base.Add(time.Minute), MediaReferences: []string{"m1"}},
		{ConversationID: ""},
	}

	recomputeConversationStats(conversations, events)

	c := conversations["conv1"]
	if c.MessageCount != 2 {
		t.Fatalf("expected message_count=2, got %d", c.MessageCount)
	}
	if !c.HasMedia {
		t.Fatal("expected has_media=true")
	}
	if c.LastEventAt == nil || !c.LastEventAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("expected last_event_at to be the latest timestamp, got %+v", c.LastEventAt)
	}
}

func TestEnsureConversationIgnoresEmptyID(t *testing.T) {
	conversations := map[string]models.Conversation{}
	ensureConversation(conversations, "")
	if len(conversations) != 0 {
		t.Fatalf("expected no conversation synthesized for empty id, got %+v", conversations)
	}
}
