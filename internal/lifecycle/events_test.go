package lifecycle_test

import (
	"testing"

	"github.com/avlowe/minute/internal/lifecycle"
)

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		event string
		want  lifecycle.EventKind
	}{
		{"bot.done", lifecycle.KindDone},
		{" BOT.DONE ", lifecycle.KindDone},
		{"bot.error", lifecycle.KindError},
		{"bot.video_call_ended", lifecycle.KindVideoCallEnded},
		{"bot.recording_ready", lifecycle.KindRecordingReady},
		{"bot.transcription_done", lifecycle.KindUnknown},
		{"", lifecycle.KindUnknown},
	}

	for _, tc := range tests {
		if got := lifecycle.ParseEventKind(tc.event); got != tc.want {
			t.Fatalf("ParseEventKind(%q) = %q, want %q", tc.event, got, tc.want)
		}
	}
}

func TestParsePayload(t *testing.T) {
	raw := []byte(`{
		"event": "bot.done",
		"data": {
			"bot": {"id": "bot-42"},
			"meeting_metadata": {"title": "Weekly Sync", "participants": ["Ada Lovelace", "Grace Hopper"]}
		}
	}`)

	payload, err := lifecycle.ParsePayload(raw)
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if payload.BotID() != "bot-42" {
		t.Fatalf("expected bot id bot-42, got %q", payload.BotID())
	}
	if payload.Kind() != lifecycle.KindDone {
		t.Fatalf("expected kind bot.done, got %q", payload.Kind())
	}
	meta := payload.Data.MeetingMetadata
	if meta == nil {
		t.Fatal("expected meeting metadata")
	}
	if meta.Title != "Weekly Sync" {
		t.Fatalf("expected metadata title, got %q", meta.Title)
	}
	if len(meta.Participants) != 2 || meta.Participants[1] != "Grace Hopper" {
		t.Fatalf("unexpected participants: %v", meta.Participants)
	}
}

func TestParsePayloadRejectsIncompleteBodies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing event", `{"data": {"bot": {"id": "bot-42"}}}`},
		{"missing bot", `{"event": "bot.done", "data": {}}`},
		{"blank bot id", `{"event": "bot.done", "data": {"bot": {"id": "  "}}}`},
		{"malformed json", `{"event": "bot.done`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lifecycle.ParsePayload([]byte(tc.raw)); err == nil {
				t.Fatal("expected error for invalid payload")
			}
		})
	}
}
