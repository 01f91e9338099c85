package recall

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// BotRecord is the provider's bot resource. Only the fields the lifecycle
// consumes are mapped; the provider sends many more.
type BotRecord struct {
	ID              string           `json:"id"`
	StatusChanges   []StatusChange   `json:"status_changes"`
	Recordings      []Recording      `json:"recordings"`
	MeetingMetadata *MeetingMetadata `json:"meeting_metadata"`
}

// StatusChange is one entry of the bot's chronological status history.
type StatusChange struct {
	Code      string `json:"code"`
	CreatedAt string `json:"created_at"`
}

// MeetingMetadata carries provider-observed meeting details.
type MeetingMetadata struct {
	Title string `json:"title"`
}

// Recording describes one recording session and its artifact shortcuts.
type Recording struct {
	StartedAt      *time.Time     `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
	MediaShortcuts MediaShortcuts `json:"media_shortcuts"`
}

// MediaShortcuts points at the downloadable artifacts of a recording.
type MediaShortcuts struct {
	Transcript        *MediaArtifact       `json:"transcript"`
	ParticipantEvents *ParticipantArtifact `json:"participant_events"`
	VideoMixed        *MediaArtifact       `json:"video_mixed"`
}

// MediaArtifact wraps a pre-signed download link.
type MediaArtifact struct {
	Data ArtifactData `json:"data"`
}

// ArtifactData holds the pre-signed link itself.
type ArtifactData struct {
	DownloadURL string `json:"download_url"`
}

// ParticipantArtifact wraps the participant roster download link.
type ParticipantArtifact struct {
	Data ParticipantArtifactData `json:"data"`
}

// ParticipantArtifactData holds the roster link.
type ParticipantArtifactData struct {
	ParticipantsDownloadURL string `json:"participants_download_url"`
}

// InMeeting reports whether the most recent status change shows the bot
// actively recording. An empty history means the bot never joined a call.
func (r *BotRecord) InMeeting() bool {
	if r == nil || len(r.StatusChanges) == 0 {
		return false
	}
	return r.StatusChanges[len(r.StatusChanges)-1].Code == StatusInCallRecording
}

// Title returns the provider-observed meeting title, if any.
func (r *BotRecord) Title() string {
	if r == nil || r.MeetingMetadata == nil {
		return ""
	}
	return strings.TrimSpace(r.MeetingMetadata.Title)
}

// Duration renders the span of the first completed recording as a
// humanized minute count, e.g. "42 min". Recordings still in flight have
// no completion time and are skipped.
func (r *BotRecord) Duration() string {
	if r == nil {
		return ""
	}
	for _, recording := range r.Recordings {
		if recording.StartedAt == nil || recording.CompletedAt == nil {
			continue
		}
		minutes := int(math.Round(recording.CompletedAt.Sub(*recording.StartedAt).Minutes()))
		return fmt.Sprintf("%d min", minutes)
	}
	return ""
}

// VideoURL returns the time-limited download link for the mixed video
// recording, or empty when the provider produced none.
func (r *BotRecord) VideoURL() string {
	if r == nil || len(r.Recordings) == 0 {
		return ""
	}
	shortcut := r.Recordings[0].MediaShortcuts.VideoMixed
	if shortcut == nil {
		return ""
	}
	return shortcut.Data.DownloadURL
}

func (r *BotRecord) transcriptURL() string {
	if r == nil || len(r.Recordings) == 0 {
		return ""
	}
	shortcut := r.Recordings[0].MediaShortcuts.Transcript
	if shortcut == nil {
		return ""
	}
	return shortcut.Data.DownloadURL
}

func (r *BotRecord) participantsURL() string {
	if r == nil || len(r.Recordings) == 0 {
		return ""
	}
	shortcut := r.Recordings[0].MediaShortcuts.ParticipantEvents
	if shortcut == nil {
		return ""
	}
	return shortcut.Data.ParticipantsDownloadURL
}

// TranscriptSegment is one speaker span of the processed transcript.
// Timestamps are seconds relative to the recording start.
type TranscriptSegment struct {
	Name           string  `json:"name"`
	ID             int64   `json:"id"`
	Words          string  `json:"words"`
	StartTimestamp float64 `json:"start_timestamp"`
	EndTimestamp   float64 `json:"end_timestamp"`
}

type transcriptEntry struct {
	Participant transcriptParticipant `json:"participant"`
	Words       []transcriptWord      `json:"words"`
}

type transcriptParticipant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type transcriptWord struct {
	Text           string            `json:"text"`
	StartTimestamp relativeTimestamp `json:"start_timestamp"`
	EndTimestamp   relativeTimestamp `json:"end_timestamp"`
}

type relativeTimestamp struct {
	Relative float64 `json:"relative"`
}

// DownloadTranscript fetches and flattens the transcript artifact
// referenced by the bot record. Each provider entry collapses into a
// single segment spanning the entry's first and last word. A record
// without a transcript artifact yields no segments and no error.
func (c *Client) DownloadTranscript(ctx context.Context, record *BotRecord) ([]TranscriptSegment, error) {
	downloadURL := record.transcriptURL()
	if downloadURL == "" {
		return nil, nil
	}
	body, err := c.download(ctx, downloadURL)
	if err != nil {
		return nil, fmt.Errorf("recall transcript: %w", err)
	}
	var entries []transcriptEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("recall transcript: decode: %w", err)
	}

	segments := make([]TranscriptSegment, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Words) == 0 {
			continue
		}
		texts := make([]string, 0, len(entry.Words))
		for _, word := range entry.Words {
			texts = append(texts, word.Text)
		}
		segments = append(segments, TranscriptSegment{
			Name:           entry.Participant.Name,
			ID:             entry.Participant.ID,
			Words:          strings.Join(texts, " "),
			StartTimestamp: entry.Words[0].StartTimestamp.Relative,
			EndTimestamp:   entry.Words[len(entry.Words)-1].EndTimestamp.Relative,
		})
	}
	return segments, nil
}

type participantEntry struct {
	Name string `json:"name"`
}

// DownloadParticipants fetches the participant roster referenced by the
// bot record, keeping names in roster order and dropping unnamed entries.
// A record without a roster artifact yields no names and no error.
func (c *Client) DownloadParticipants(ctx context.Context, record *BotRecord) ([]string, error) {
	downloadURL := record.participantsURL()
	if downloadURL == "" {
		return nil, nil
	}
	body, err := c.download(ctx, downloadURL)
	if err != nil {
		return nil, fmt.Errorf("recall participants: %w", err)
	}
	var entries []participantEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("recall participants: decode: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}
