package api

import (
	"encoding/json"
	"time"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Meeting describes a meeting record in a transport-friendly format.
// Transcript, summary, and participants are stored as JSON and passed
// through as raw messages to avoid double-encoding.
type Meeting struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	MeetingURL    string          `json:"meetingUrl"`
	Status        string          `json:"status"`
	BotID         string          `json:"botId,omitempty"`
	Transcript    json.RawMessage `json:"transcript,omitempty"`
	Summary       json.RawMessage `json:"summary,omitempty"`
	Participants  json.RawMessage `json:"participants,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	ScheduledTime string          `json:"scheduledTime,omitempty"`
	UserID        *int64          `json:"userId,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// MeetingList wraps a page of meetings plus the total row count.
type MeetingList struct {
	Meetings []Meeting `json:"meetings"`
	Total    int       `json:"total"`
}

// VideoURL carries a freshly resolved recording link. Provider links are
// pre-signed and expire; ExpiresIn is a human label, not a timestamp.
type VideoURL struct {
	VideoURL  string  `json:"videoUrl"`
	ExpiresIn string  `json:"expiresIn"`
	Meeting   Meeting `json:"meeting"`
}

// BotStatus reports whether a bot is currently recording its call.
// Field names follow the provider-facing contract, not the camelCase
// DTO convention.
type BotStatus struct {
	BotID     string `json:"bot_id"`
	InMeeting bool   `json:"in_meeting"`
}

// WebhookAck acknowledges a provider webhook delivery. Field names follow
// the provider-facing contract, not the camelCase DTO convention.
type WebhookAck struct {
	Message string `json:"message"`
	BotID   string `json:"bot_id"`
	Event   string `json:"event"`
}

// SummaryResult reports the outcome of an on-demand summarization run.
type SummaryResult struct {
	Success bool            `json:"success"`
	Summary json.RawMessage `json:"summary"`
	Message string          `json:"message"`
}

// WebhookEvent describes a queued webhook delivery for status views.
type WebhookEvent struct {
	ID        int64  `json:"id"`
	BotID     string `json:"botId"`
	MeetingID int64  `json:"meetingId"`
	Event     string `json:"event"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// LifecycleStatus summarizes the event-processing engine.
type LifecycleStatus struct {
	Running      bool           `json:"running"`
	MeetingStats map[string]int `json:"meetingStats"`
	EventStats   map[string]int `json:"eventStats"`
	LastError    string         `json:"lastError,omitempty"`
	LastEvent    *WebhookEvent  `json:"lastEvent,omitempty"`
}

// ReadinessCheck reports one collaborator's availability.
type ReadinessCheck struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	DatabasePath string           `json:"databasePath"`
	LockFilePath string           `json:"lockFilePath"`
	Lifecycle    LifecycleStatus  `json:"lifecycle"`
	Checks       []ReadinessCheck `json:"checks,omitempty"`
}

// User describes an account without its credential material.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// UserList wraps all known accounts.
type UserList struct {
	Users []User `json:"users"`
}

// AuthToken is the response to a successful credential exchange.
type AuthToken struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Note describes a user-authored annotation on a meeting.
type Note struct {
	ID        int64  `json:"id"`
	MeetingID int64  `json:"meetingId"`
	UserID    *int64 `json:"userId,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// NoteList wraps the notes attached to a meeting.
type NoteList struct {
	Notes []Note `json:"notes"`
}

// CalendarEvent describes a calendar entry, optionally recurring.
type CalendarEvent struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Recurrence  string `json:"recurrence,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// CalendarEventList wraps a user's calendar entries.
type CalendarEventList struct {
	Events []CalendarEvent `json:"events"`
}

// LogEvent mirrors a structured log record for live tailing over the API.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Event         string            `json:"event,omitempty"`
	MeetingID     int64             `json:"meeting_id,omitempty"`
	BotID         string            `json:"bot_id,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse carries a page of log events plus the cursor for the
// next fetch.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// OccurrenceList carries expanded occurrences of a recurring event.
type OccurrenceList struct {
	EventID     int64    `json:"eventId"`
	Occurrences []string `json:"occurrences"`
}
