package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/store"
)

func TestFromMeetingMapsFields(t *testing.T) {
	scheduled := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)
	userID := int64(7)
	meeting := &store.Meeting{
		ID:               12,
		Title:            "Weekly Sync",
		MeetingURL:       "https://meet.example.com/abc",
		Status:           store.StatusDone,
		BotID:            "bot-12",
		TranscriptJSON:   `[{"name":"Ada Lovelace","words":"hello"}]`,
		SummaryJSON:      `{"content":[],"participants":[]}`,
		ParticipantsJSON: `["Ada Lovelace"]`,
		Duration:         "42 min",
		ScheduledTime:    &scheduled,
		UserID:           &userID,
		ErrorMessage:     "summarization failed: boom",
		CreatedAt:        time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC),
	}

	dto := FromMeeting(meeting)
	if dto.ID != 12 || dto.Title != "Weekly Sync" || dto.Status != "done" {
		t.Fatalf("unexpected core fields: %+v", dto)
	}
	if dto.BotID != "bot-12" || dto.Duration != "42 min" {
		t.Fatalf("unexpected bot fields: %+v", dto)
	}
	if string(dto.Transcript) != meeting.TranscriptJSON {
		t.Fatalf("transcript not passed through: %s", dto.Transcript)
	}
	if dto.ScheduledTime != "2026-04-01T15:00:00.000Z" {
		t.Fatalf("unexpected scheduled time %q", dto.ScheduledTime)
	}
	if dto.UserID == nil || *dto.UserID != 7 {
		t.Fatalf("unexpected user id %v", dto.UserID)
	}
	if dto.ErrorMessage != "summarization failed: boom" {
		t.Fatalf("unexpected error message %q", dto.ErrorMessage)
	}
	if dto.CreatedAt != "2026-04-01T14:00:00.000Z" || dto.UpdatedAt != "2026-04-01T16:00:00.000Z" {
		t.Fatalf("unexpected timestamps: %q %q", dto.CreatedAt, dto.UpdatedAt)
	}
}

func TestMeetingWireNamesAreCamelCase(t *testing.T) {
	meeting := &store.Meeting{
		ID:           1,
		Title:        "Naming Check",
		MeetingURL:   "https://meet.example.com/n",
		Status:       store.StatusInProgress,
		BotID:        "bot-1",
		ErrorMessage: "x",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	encoded, err := json.Marshal(FromMeeting(meeting))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"meetingUrl"`, `"botId"`, `"errorMessage"`, `"createdAt"`, `"updatedAt"`} {
		if !strings.Contains(string(encoded), key) {
			t.Fatalf("expected %s in payload: %s", key, encoded)
		}
	}
}

func TestFromMeetingOmitsEmptyArtifacts(t *testing.T) {
	dto := FromMeeting(&store.Meeting{ID: 3, Status: store.StatusInProgress})
	if dto.Transcript != nil || dto.Summary != nil || dto.Participants != nil {
		t.Fatalf("expected empty artifacts omitted: %+v", dto)
	}
	if dto.ScheduledTime != "" {
		t.Fatalf("expected no scheduled time, got %q", dto.ScheduledTime)
	}
}

func TestFromLifecycleStatus(t *testing.T) {
	summary := lifecycle.StatusSummary{
		Running:   true,
		LastError: "claim failed",
		LastEvent: &store.WebhookEvent{
			ID:        4,
			BotID:     "bot-9",
			MeetingID: 2,
			Event:     "bot.done",
			Status:    store.EventStatusDone,
			Attempts:  1,
		},
		MeetingStats: map[store.Status]int{store.StatusDone: 3, store.StatusInProgress: 1},
		EventStats:   map[store.EventStatus]int{store.EventStatusPending: 2},
	}

	dto := FromLifecycleStatus(summary)
	if !dto.Running || dto.LastError != "claim failed" {
		t.Fatalf("unexpected status: %+v", dto)
	}
	if dto.MeetingStats["done"] != 3 || dto.MeetingStats["in_progress"] != 1 {
		t.Fatalf("unexpected meeting stats: %v", dto.MeetingStats)
	}
	if dto.EventStats["pending"] != 2 {
		t.Fatalf("unexpected event stats: %v", dto.EventStats)
	}
	if dto.LastEvent == nil || dto.LastEvent.Event != "bot.done" || dto.LastEvent.Status != "done" {
		t.Fatalf("unexpected last event: %+v", dto.LastEvent)
	}
}

func TestFromUserDropsCredentialMaterial(t *testing.T) {
	user := &store.User{
		ID:           5,
		Email:        "ada@example.com",
		PasswordHash: "sha256$salt$digest",
		CreatedAt:    time.Now().UTC(),
	}
	encoded, err := json.Marshal(FromUser(user))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(encoded)), "password") {
		t.Fatalf("credential material leaked: %s", encoded)
	}
}

func TestFormatTimeZeroValue(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
}
