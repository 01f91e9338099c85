package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a meeting.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusErrored    Status = "errored"
)

var allStatuses = []Status{
	StatusScheduled,
	StatusInProgress,
	StatusProcessing,
	StatusDone,
	StatusErrored,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// statusRank orders the lifecycle so transitions can only move forward.
var statusRank = map[Status]int{
	StatusScheduled:  0,
	StatusInProgress: 1,
	StatusProcessing: 2,
	StatusDone:       3,
	StatusErrored:    3,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusErrored
}

// CanTransition reports whether a meeting may move from one status to another.
// Terminal statuses are immutable and the lifecycle never runs backwards.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// EventStatus represents the delivery lifecycle of a queued webhook event.
type EventStatus string

const (
	EventStatusPending    EventStatus = "pending"
	EventStatusProcessing EventStatus = "processing"
	EventStatusDone       EventStatus = "done"
	EventStatusFailed     EventStatus = "failed"
)

var allEventStatuses = []EventStatus{
	EventStatusPending,
	EventStatusProcessing,
	EventStatusDone,
	EventStatusFailed,
}

var eventStatusSet = func() map[EventStatus]struct{} {
	set := make(map[EventStatus]struct{}, len(allEventStatuses))
	for _, status := range allEventStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseEventStatus converts a string into a known EventStatus.
func ParseEventStatus(value string) (EventStatus, bool) {
	normalized := EventStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := eventStatusSet[normalized]
	return normalized, ok
}

// Meeting represents a tracked meeting persisted in SQLite.
//
// Transcript, summary, and participant payloads are stored as JSON text;
// the api package owns their wire shapes.
type Meeting struct {
	ID               int64
	Title            string
	MeetingURL       string
	Status           Status
	BotID            string
	TranscriptJSON   string
	SummaryJSON      string
	ParticipantsJSON string
	Duration         string
	ScheduledTime    *time.Time
	UserID           *int64
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Active reports whether the meeting still has lifecycle work ahead of it.
func (m Meeting) Active() bool {
	return !m.Status.Terminal()
}

// HasTranscript reports whether transcript content has been captured.
func (m Meeting) HasTranscript() bool {
	return strings.TrimSpace(m.TranscriptJSON) != ""
}

// WebhookEvent represents a bot status webhook persisted for durable delivery.
// Events are acknowledged to the sender before processing; the worker pool
// claims them at least once until they land in done or failed.
type WebhookEvent struct {
	ID          int64
	BotID       string
	MeetingID   int64
	Event       string
	PayloadJSON string
	Status      EventStatus
	Attempts    int
	LastError   string
	HeartbeatAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User represents an account that owns meetings and notes.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Note represents a user-authored annotation attached to a meeting.
type Note struct {
	ID        int64
	MeetingID int64
	UserID    *int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalendarEvent represents a calendar entry, optionally recurring via an
// RRULE expression.
type CalendarEvent struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Recurrence  string
	StartTime   *time.Time
	CreatedAt   time.Time
}

// HealthSummary describes aggregated meeting counts per lifecycle state
// alongside webhook queue depth.
type HealthSummary struct {
	Total         int
	Scheduled     int
	InProgress    int
	Processing    int
	Done          int
	Errored       int
	PendingEvents int
	FailedEvents  int
}

// DatabaseHealth captures diagnostic information about the meeting database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalMeetings    int
	Error            string
}
