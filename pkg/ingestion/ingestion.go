// Package ingestion drives the pipeline: detect → extract → parse → merge →
// link → persist, emitting progress events at phase boundaries, per
// spec.md §4.7.
package ingestion

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/extractor"
	"github.com/snapindex/snapindex/pkg/htmlparser"
	"github.com/snapindex/snapindex/pkg/jsonparsers"
	"github.com/snapindex/snapindex/pkg/medialinker"
	"github.com/snapindex/snapindex/pkg/models"
	"github.com/snapindex/snapindex/pkg/store"
)

// Phase fractions from spec.md §4.7's pipeline table.
const (
	fractionInit    = 0.05
	fractionFriends = 0.08
	fractionHTMLEnd = 0.35
	fractionChatJSON = 0.38
	fractionSnapJSON = 0.42
	fractionLink     = 0.50
	fractionMemories = 0.65
	fractionPersist  = 0.75
	fractionDone     = 1.00
)

// reconciliationWindow is the |Δt| <= 2s tolerance used to match an HTML
// event against a JSON event for the same (conversation, sender) pair
// (spec.md §4.7).
const reconciliationWindow = 2 * time.Second

// ProgressFunc receives IngestionProgress events.
type ProgressFunc func(models.IngestionProgress)

// Orchestrator drives one ingestion run.
type Orchestrator struct {
	store *store.Store
	log   zerolog.Logger
}

// New constructs an Orchestrator bound to a Store.
func New(s *store.Store, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: s, log: log.With().Str("component", "ingestion").Logger()}
}

// Run executes the full pipeline for one ExportSet, resolving a working
// directory (extracting zips, identity for folders), parsing all sources,
// reconciling, linking, and persisting.
func (o *Orchestrator) Run(ctx context.Context, export models.ExportSet, extractTarget string, onProgress ProgressFunc) (models.IngestionResult, error) {
	runID := xid.New().String()
	log := o.log.With().Str("run_id", runID).Str("export_id", export.ID).Logger()
	result := models.IngestionResult{ExportID: export.ID}
	emit := func(step string, fraction float64, message string) {
		if onProgress != nil {
			onProgress(models.IngestionProgress{ExportID: export.ID, CurrentStep: step, Progress: fraction, Message: message})
		}
	}

	emit("Initializing", fractionInit, "opening store")
	if err := o.store.InsertExport(ctx, export); err != nil {
		return result, err
	}

	workDir, err := o.resolveWorkDir(export, extractTarget, emit)
	if err != nil {
		return result, err
	}

	emit("Resolving Identities", fractionFriends, "parsing friends")
	people, err := jsonparsers.ParseFriends(filepath.Join(workDir, "json", "friends.json"))
	if err != nil {
		log.Warn().Err(err).Msg("friends.json parse failed")
		result.Warnings = append(result.Warnings, "friends.json: "+err.Error())
	} else if err := o.store.InsertPeople(ctx, people); err != nil {
		return result, err
	}

	emit("Parsing Chat Transcripts", 0.10, "scanning html")
	htmlPaths, _ := filepath.Glob(filepath.Join(workDir, "html", "chat_history", "*.html"))
	htmlResults, htmlWarnings := htmlparser.ParseAll(htmlPaths, export.ID)
	result.Warnings = append(result.Warnings, htmlWarnings...)
	result.ParseFailures += len(htmlWarnings)
	emit("Parsing Chat Transcripts", fractionHTMLEnd, "parsed html")

	if err := o.store.RecordHTMLFileCounts(ctx, export.ID, len(htmlPaths), len(htmlResults)); err != nil {
		return result, err
	}

	conversations := map[string]models.Conversation{}
	var allEvents []models.Event
	for _, r := range htmlResults {
		conversations[r.Conversation.ID] = r.Conversation
		allEvents = append(allEvents, r.Events...)
	}

	emit("Parsing Chat JSON", fractionChatJSON, "reconciling")
	chatEvents, chatWarnings, err := jsonparsers.ParseChatHistory(filepath.Join(workDir, "json", "chat_history.json"), export.ID)
	if err != nil {
		log.Warn().Err(err).Msg("chat_history.json parse failed")
		result.Warnings = append(result.Warnings, "chat_history.json: "+err.Error())
	}
	result.Warnings = append(result.Warnings, chatWarnings...)
	allEvents = reconcile(allEvents, chatEvents, conversations)

	emit("Parsing Snap History", fractionSnapJSON, "appending snaps")
	snapEvents, snapWarnings, err := jsonparsers.ParseSnapHistory(filepath.Join(workDir, "json", "snap_history.json"), export.ID)
	if err != nil {
		log.Warn().Err(err).Msg("snap_history.json parse failed")
		result.Warnings = append(result.Warnings, "snap_history.json: "+err.Error())
	}
	result.Warnings = append(result.Warnings, snapWarnings...)
	allEvents = appendSynthesizing(allEvents, snapEvents, conversations)

	emit("Linking Media", fractionLink, "indexing media")
	sort.SliceStable(allEvents, func(i, j int) bool { return allEvents[i].Timestamp.Before(allEvents[j].Timestamp) })
	linker := medialinker.New(log)
	for _, dir := range []string{"chat_media", "media"} {
		if err := linker.AddMediaDirectory(filepath.Join(workDir, dir)); err != nil {
			result.Warnings = append(result.Warnings, "media scan: "+err.Error())
		}
	}
	linker.LinkEvents(allEvents)

	recomputeConversationStats(conversations, allEvents)

	emit("Processing Memories", fractionMemories, "parsing memories")
	memories, memWarnings, err := jsonparsers.ParseMemories(filepath.Join(workDir, "json", "memories_history.json"), export.ID)
	if err != nil {
		log.Warn().Err(err).Msg("memories_history.json parse failed")
		result.Warnings = append(result.Warnings, "memories_history.json: "+err.Error())
	}
	result.Warnings = append(result.Warnings, memWarnings...)

	emit("Saving to Database", fractionPersist, "writing")
	var convList []models.Conversation
	for _, c := range conversations {
		convList = append(convList, c)
	}
	if err := o.store.InsertConversations(ctx, convList); err != nil {
		return result, err
	}
	if err := o.store.InsertEvents(ctx, allEvents); err != nil {
		return result, err
	}
	if err := o.store.InsertMemories(ctx, memories); err != nil {
		return result, err
	}
	if err := o.store.RecomputeConversationAggregates(ctx, allEvents); err != nil {
		return result, err
	}

	result.ConversationsParsed = len(convList)
	result.EventsParsed = len(allEvents)
	result.MemoriesParsed = len(memories)
	emit("Complete", fractionDone, "done")
	return result, nil
}

// resolveWorkDir extracts zip parts (emitting progress mapped into the
// extractor's [0, 0.10] slice) or returns the source path unchanged for
// folder imports (spec.md §4.3, §4.7).
func (o *Orchestrator) resolveWorkDir(export models.ExportSet, extractTarget string, emit func(string, float64, string)) (string, error) {
	if export.SourceType == models.SourceFolder {
		if len(export.SourcePaths) == 0 {
			return "", apperror.Validation("export has no source paths")
		}
		return export.SourcePaths[0], nil
	}

	ex := extractor.New(o.log)
	workDir, err := ex.Extract(export.SourcePaths, extractTarget, export.ID, func(p extractor.Progress) {
		perPart := 1.0 / float64(max(p.TotalParts, 1))
		withinPart := float64(p.Entry+1) / float64(max(p.TotalEntries, 1))
		fraction := (float64(p.Part)*perPart + withinPart*perPart) * 0.10
		emit("Extracting", fraction, "extracting archive")
	})
	if err != nil {
		return "", err
	}
	return workDir, nil
}

// reconcile implements spec.md §4.7: for each JSON event, find the first
// HTML event with matching conversation id, matching sender, timestamp
// delta <= reconciliationWindow, and no metadata already attached. If
// found, merge the JSON event's metadata onto the HTML event. Otherwise,
// append the JSON event as a new event, synthesizing its conversation if
// absent.
func reconcile(htmlEvents, jsonEvents []models.Event, conversations map[string]models.Conversation) []models.Event {
	out := htmlEvents
	for _, je := range jsonEvents {
		matched := false
		for i := range out {
			he := &out[i]
			if he.ConversationID != je.ConversationID || he.Sender != je.Sender || he.Metadata != nil {
				continue
			}
			delta := he.Timestamp.Sub(je.Timestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta <= reconciliationWindow {
				he.Metadata = je.Metadata
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		out = append(out, je)
		ensureConversation(conversations, je.ConversationID)
	}
	return out
}

// appendSynthesizing appends events unconditionally (no reconciliation for
// the snap-history phase, per spec.md §4.7's pipeline table), synthesizing
// missing conversations.
func appendSynthesizing(events, newEvents []models.Event, conversations map[string]models.Conversation) []models.Event {
	for _, e := range newEvents {
		ensureConversation(conversations, e.ConversationID)
	}
	return append(events, newEvents...)
}

func ensureConversation(conversations map[string]models.Conversation, id string) {
	if id == "" {
		return
	}
	if _, ok := conversations[id]; !ok {
		conversations[id] = models.Conversation{ID: id}
	}
}

// recomputeConversationStats recomputes message_count and has_media in one
// in-memory pass over events after reconciliation and linking (spec.md
// §4.7).
func recomputeConversationStats(conversations map[string]models.Conversation, events []models.Event) {
	counts := map[string]int{}
	media := map[string]bool{}
	last := map[string]time.Time{}
	for _, e := range events {
		if e.ConversationID == "" {
			continue
		}
		counts[e.ConversationID]++
		if len(e.MediaReferences) > 0 {
			media[e.ConversationID] = true
		}
		if t, ok := last[e.ConversationID]; !ok || e.Timestamp.After(t) {
			last[e.ConversationID] = e.Timestamp
		}
	}
	for id, c := range conversations {
		c.MessageCount = counts[id]
		c.HasMedia = media[id]
		if t, ok := last[id]; ok {
			c.LastEventAt = &t
		}
		conversations[id] = c
	}
}

// NewExportID generates a UUID for ad-hoc export identification where the
// Detector's canonical naming doesn't apply (e.g. tests constructing a
// synthetic export).
func NewExportID() string { return uuid.NewString() }
