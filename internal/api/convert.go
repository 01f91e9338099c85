package api

import (
	"encoding/json"
	"time"

	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/store"
)

// FromMeeting converts a meeting record to its API representation.
func FromMeeting(meeting *store.Meeting) Meeting {
	if meeting == nil {
		return Meeting{}
	}

	dto := Meeting{
		ID:           meeting.ID,
		Title:        meeting.Title,
		MeetingURL:   meeting.MeetingURL,
		Status:       string(meeting.Status),
		BotID:        meeting.BotID,
		Duration:     meeting.Duration,
		UserID:       meeting.UserID,
		ErrorMessage: meeting.ErrorMessage,
		CreatedAt:    FormatTime(meeting.CreatedAt),
		UpdatedAt:    FormatTime(meeting.UpdatedAt),
	}
	if meeting.ScheduledTime != nil {
		dto.ScheduledTime = FormatTime(*meeting.ScheduledTime)
	}
	if raw := meeting.TranscriptJSON; raw != "" {
		dto.Transcript = json.RawMessage(raw)
	}
	if raw := meeting.SummaryJSON; raw != "" {
		dto.Summary = json.RawMessage(raw)
	}
	if raw := meeting.ParticipantsJSON; raw != "" {
		dto.Participants = json.RawMessage(raw)
	}
	return dto
}

// FromMeetings converts a slice of meeting records into API DTOs.
func FromMeetings(meetings []*store.Meeting) []Meeting {
	if len(meetings) == 0 {
		return nil
	}
	out := make([]Meeting, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, FromMeeting(meeting))
	}
	return out
}

// FromWebhookEvent converts a queued event to its API representation.
// The raw payload is deliberately omitted; it exists for replay, not display.
func FromWebhookEvent(evt *store.WebhookEvent) *WebhookEvent {
	if evt == nil {
		return nil
	}
	return &WebhookEvent{
		ID:        evt.ID,
		BotID:     evt.BotID,
		MeetingID: evt.MeetingID,
		Event:     evt.Event,
		Status:    string(evt.Status),
		Attempts:  evt.Attempts,
		LastError: evt.LastError,
		CreatedAt: FormatTime(evt.CreatedAt),
		UpdatedAt: FormatTime(evt.UpdatedAt),
	}
}

// FromWebhookEvents converts a slice of queued events into API DTOs.
func FromWebhookEvents(events []*store.WebhookEvent) []WebhookEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]WebhookEvent, 0, len(events))
	for _, evt := range events {
		if dto := FromWebhookEvent(evt); dto != nil {
			out = append(out, *dto)
		}
	}
	return out
}

// FromLifecycleStatus converts a lifecycle status summary to API payload.
func FromLifecycleStatus(summary lifecycle.StatusSummary) LifecycleStatus {
	status := LifecycleStatus{
		Running:      summary.Running,
		MeetingStats: MergeMeetingStats(summary.MeetingStats),
		EventStats:   MergeEventStats(summary.EventStats),
		LastError:    summary.LastError,
		LastEvent:    FromWebhookEvent(summary.LastEvent),
	}
	return status
}

// MergeMeetingStats produces a string-keyed representation of meeting stats.
func MergeMeetingStats(stats map[store.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// MergeEventStats produces a string-keyed representation of event stats.
func MergeEventStats(stats map[store.EventStatus]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromUser converts a user record, dropping credential material.
func FromUser(user *store.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: FormatTime(user.CreatedAt),
	}
}

// FromUsers converts a slice of user records into API DTOs.
func FromUsers(users []*store.User) []User {
	if len(users) == 0 {
		return nil
	}
	out := make([]User, 0, len(users))
	for _, user := range users {
		out = append(out, FromUser(user))
	}
	return out
}

// FromNote converts a note record to its API representation.
func FromNote(note *store.Note) Note {
	if note == nil {
		return Note{}
	}
	return Note{
		ID:        note.ID,
		MeetingID: note.MeetingID,
		UserID:    note.UserID,
		Content:   note.Content,
		CreatedAt: FormatTime(note.CreatedAt),
		UpdatedAt: FormatTime(note.UpdatedAt),
	}
}

// FromNotes converts a slice of note records into API DTOs.
func FromNotes(notes []*store.Note) []Note {
	if len(notes) == 0 {
		return nil
	}
	out := make([]Note, 0, len(notes))
	for _, note := range notes {
		out = append(out, FromNote(note))
	}
	return out
}

// FromCalendarEvent converts a calendar record to its API representation.
func FromCalendarEvent(event *store.CalendarEvent) CalendarEvent {
	if event == nil {
		return CalendarEvent{}
	}
	dto := CalendarEvent{
		ID:          event.ID,
		UserID:      event.UserID,
		Title:       event.Title,
		Description: event.Description,
		Recurrence:  event.Recurrence,
		CreatedAt:   FormatTime(event.CreatedAt),
	}
	if event.StartTime != nil {
		dto.StartTime = FormatTime(*event.StartTime)
	}
	return dto
}

// FromCalendarEvents converts a slice of calendar records into API DTOs.
func FromCalendarEvents(events []*store.CalendarEvent) []CalendarEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]CalendarEvent, 0, len(events))
	for _, event := range events {
		out = append(out, FromCalendarEvent(event))
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
