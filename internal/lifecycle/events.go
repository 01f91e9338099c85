package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventKind classifies a webhook event after parsing. The set is closed;
// anything the provider sends outside it maps to KindUnknown.
type EventKind string

const (
	KindDone           EventKind = "bot.done"
	KindError          EventKind = "bot.error"
	KindVideoCallEnded EventKind = "bot.video_call_ended"
	KindRecordingReady EventKind = "bot.recording_ready"
	KindUnknown        EventKind = "unknown"
)

var knownKinds = map[EventKind]struct{}{
	KindDone:           {},
	KindError:          {},
	KindVideoCallEnded: {},
	KindRecordingReady: {},
}

// ParseEventKind normalizes a raw event name into a known kind.
func ParseEventKind(event string) EventKind {
	normalized := EventKind(strings.ToLower(strings.TrimSpace(event)))
	if _, ok := knownKinds[normalized]; ok {
		return normalized
	}
	return KindUnknown
}

// Payload is the provider webhook body. The receiver validates it before
// enqueueing; the processor re-reads it for metadata fallback when the bot
// record cannot be fetched.
type Payload struct {
	Event string      `json:"event"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the bot reference plus optional inline artifacts.
type PayloadData struct {
	Bot                *PayloadBot                `json:"bot,omitempty"`
	TranscriptSegments []PayloadTranscriptSegment `json:"transcript_segments,omitempty"`
	MeetingMetadata    *PayloadMetadata           `json:"meeting_metadata,omitempty"`
}

// PayloadBot identifies the bot the event concerns.
type PayloadBot struct {
	ID string `json:"id"`
}

// PayloadTranscriptSegment is an inline transcript fragment some events carry.
type PayloadTranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// PayloadMetadata is the best-effort meeting context delivered with the event.
type PayloadMetadata struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
}

// BotID returns the trimmed bot identifier or empty when absent.
func (p *Payload) BotID() string {
	if p == nil || p.Data.Bot == nil {
		return ""
	}
	return strings.TrimSpace(p.Data.Bot.ID)
}

// Kind returns the parsed event kind.
func (p *Payload) Kind() EventKind {
	if p == nil {
		return KindUnknown
	}
	return ParseEventKind(p.Event)
}

// ParsePayload decodes and validates a webhook body. A payload without an
// event name or bot identifier is rejected; the receiver answers such
// deliveries with 400 and never enqueues them.
func ParsePayload(raw []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	payload.Event = strings.TrimSpace(payload.Event)
	if payload.Event == "" {
		return nil, errors.New("webhook payload missing event name")
	}
	if payload.BotID() == "" {
		return nil, errors.New("webhook payload missing bot id")
	}
	return &payload, nil
}
