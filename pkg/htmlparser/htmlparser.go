// Package htmlparser parses per-conversation chat transcript HTML documents
// into a Conversation and its Event list, per spec.md §4.4.
package htmlparser

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/chattime"
	"github.com/snapindex/snapindex/pkg/models"
)

// subpagePrefix is stripped from a chat transcript's filename stem to
// derive the conversation id (spec.md §4.4).
const subpagePrefix = "subpage_"

// mediaExtensions is the closed set of file extensions treated as media
// when found in anchor hrefs (spec.md §4.4).
var mediaExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true,
	"heif": true, "gif": true, "mp4": true, "mov": true,
}

// eventTypeMarkers maps the exact text of a message block's marker span to
// the closed EventType enumeration (spec.md §3, §4.4). A marker span
// carrying "TEXT" or any unrecognized text yields no match, and the caller
// falls back to TEXT or UNKNOWN.
var eventTypeMarkers = map[string]models.EventType{
	"MEDIA":                         models.EventMedia,
	"SNAP":                          models.EventSnap,
	"NOTE":                          models.EventNote,
	"STICKER":                       models.EventSticker,
	"SHARE":                         models.EventShare,
	"MISSED_VIDEO_CHAT":             models.EventMissedVideoChat,
	"MISSED_AUDIO_CHAT":             models.EventMissedAudioChat,
	"STATUSPARTICIPANTADDED":        models.EventStatusParticipantAdded,
	"STATUSPARTICIPANTREMOVED":      models.EventStatusParticipantRemoved,
	"STATUSCONVERSATIONNAMECHANGED": models.EventStatusConversationRename,
}

// Result is one parsed conversation file's output.
type Result struct {
	Conversation models.Conversation
	Events       []models.Event
	Warning      string
}

// Parser parses chat transcript HTML.
type Parser struct {
	exportID string
}

// New constructs a Parser for the given export.
func New(exportID string) *Parser {
	return &Parser{exportID: exportID}
}

// ParseFile reads and parses a single subpage HTML file.
func (p *Parser) ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, apperror.IO("open "+path, err)
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(path))
}

// Parse parses one conversation's HTML document, operating purely over an
// in-memory document so it is safe to call concurrently across files
// (spec.md §4.4: "embarrassingly parallel across files").
func (p *Parser) Parse(r io.Reader, fileName string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, apperror.Parsing("parse html "+fileName, err)
	}

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	conversationID := strings.TrimPrefix(stem, subpagePrefix)

	displayName := extractDisplayName(doc, conversationID)

	var events []models.Event
	participants := map[string]bool{}

	doc.Find(".rightpanel .message, .rightpanel > div").Each(func(_ int, block *goquery.Selection) {
		e, ok := parseMessageBlock(block, p.exportID, conversationID)
		if !ok {
			return
		}
		events = append(events, e)
		participants[e.Sender] = true
	})

	var partList []string
	for u := range participants {
		partList = append(partList, u)
	}

	var lastEvent *time.Time
	for _, e := range events {
		if lastEvent == nil || e.Timestamp.After(*lastEvent) {
			t := e.Timestamp
			lastEvent = &t
		}
	}

	return Result{
		Conversation: models.Conversation{
			ID:           conversationID,
			DisplayName:  displayName,
			Participants: partList,
			LastEventAt:  lastEvent,
			MessageCount: len(events),
		},
		Events: events,
	}, nil
}

// chatHistoryWithPattern strips the "Chat History with " prefix from an
// <h1>, leaving the bare display name (spec.md §4.4).
var chatHistoryWithPattern = regexp.MustCompile(`(?i)^Chat History with\s+`)

func extractDisplayName(doc *goquery.Document, conversationID string) *string {
	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if h1 == "" {
		return nil
	}
	name := chatHistoryWithPattern.ReplaceAllString(h1, "")
	name = strings.TrimSpace(name)
	if name == "" {
		name = conversationID
	}
	return &name
}

func parseMessageBlock(block *goquery.Selection, exportID, conversationID string) (models.Event, bool) {
	sender := strings.TrimSpace(block.Find("h4").First().Text())
	if sender == "" {
		return models.Event{}, false
	}

	timestampText := strings.TrimSpace(block.Find("h6").First().Text())
	ts, ok := chattime.TryParse(timestampText)
	if !ok {
		return models.Event{}, false
	}

	var content *string
	if text := strings.TrimSpace(block.Find("p").First().Text()); text != "" {
		content = &text
	}

	eventType := detectEventType(block, content)
	mediaRefs := extractMediaReferences(block)

	return models.Event{
		ID:              uuid.NewString(),
		Timestamp:       ts,
		Sender:          sender,
		SenderName:      sender,
		ExportID:        exportID,
		ConversationID:  conversationID,
		Content:         content,
		EventType:       eventType,
		MediaReferences: mediaRefs,
	}, true
}

// detectEventType scans the block's marker spans for an exact match against
// the closed enumeration in eventTypeMarkers (spec.md §4.4: "scan contained
// inline text markers against the closed enumeration in §3"). A block with
// no marker span but with text content is an ordinary TEXT message; a block
// with neither is UNKNOWN.
func detectEventType(block *goquery.Selection, content *string) models.EventType {
	eventType := models.EventType("")
	block.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		marker := strings.TrimSpace(span.Text())
		if marker == "TEXT" {
			eventType = models.EventText
			return false
		}
		if kind, ok := eventTypeMarkers[marker]; ok {
			eventType = kind
			return false
		}
		return true
	})
	if eventType != "" {
		return eventType
	}
	if content != nil {
		return models.EventText
	}
	return models.EventUnknown
}

// extractMediaReferences collects URLs from embedded image/video/source
// tags, and from anchor hrefs carrying a media file extension; data: URLs
// are ignored (spec.md §4.4).
func extractMediaReferences(block *goquery.Selection) []string {
	var refs []string
	seen := map[string]bool{}
	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") || seen[src] {
			return
		}
		seen[src] = true
		refs = append(refs, src)
	}

	block.Find("img, video, source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
	})
	block.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(href), "."))
		if mediaExtensions[ext] {
			add(href)
		}
	})
	return refs
}

// ParseAll parses every subpage file concurrently, merging each file's
// result via a pre-sized results slice so no worker shares mutable state
// (spec.md §9; grounded on pkg/connector/linkpreview.go's FetchPreviews
// parallel-fetch pattern).
func ParseAll(paths []string, exportID string) ([]Result, []string) {
	results := make([]Result, len(paths))
	errs := make([]string, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			parser := New(exportID)
			res, err := parser.ParseFile(p)
			if err != nil {
				errs[idx] = "parse " + p + ": " + err.Error()
				return
			}
			results[idx] = res
		}(i, path)
	}
	wg.Wait()

	var warnings []string
	var out []Result
	for i, res := range results {
		if errs[i] != "" {
			warnings = append(warnings, errs[i])
			continue
		}
		out = append(out, res)
	}
	return out, warnings
}
