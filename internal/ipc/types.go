package ipc

import "github.com/avlowe/minute/internal/api"

// StartRequest triggers daemon lifecycle startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Meeting mirrors the HTTP API meeting DTO for internal IPC callers.
type Meeting = api.Meeting

// WebhookEvent mirrors the HTTP API webhook event DTO.
type WebhookEvent = api.WebhookEvent

// ReadinessCheck mirrors the HTTP API readiness check DTO.
type ReadinessCheck = api.ReadinessCheck

// StatusResponse represents combined daemon/lifecycle status information.
type StatusResponse struct {
	Running      bool             `json:"running"`
	MeetingStats map[string]int   `json:"meeting_stats"`
	EventStats   map[string]int   `json:"event_stats"`
	LastError    string           `json:"last_error"`
	LastEvent    *WebhookEvent    `json:"last_event"`
	LockPath     string           `json:"lock_path"`
	DatabasePath string           `json:"database_path"`
	Checks       []ReadinessCheck `json:"checks"`
	PID          int              `json:"pid"`
}

// MeetingsListRequest filters meeting listing by status.
type MeetingsListRequest struct {
	Statuses []string `json:"statuses"`
}

// MeetingsListResponse contains meeting records.
type MeetingsListResponse struct {
	Meetings []Meeting `json:"meetings"`
}

// MeetingDescribeRequest fetches a single meeting by id.
type MeetingDescribeRequest struct {
	ID int64 `json:"id"`
}

// MeetingDescribeResponse contains a single meeting record.
type MeetingDescribeResponse struct {
	Meeting Meeting `json:"meeting"`
}

// MeetingRemoveRequest removes specific meetings by ID.
type MeetingRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// MeetingRemoveResponse reports number of removed meetings.
type MeetingRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// EventsListRequest lists queued webhook events in one state.
type EventsListRequest struct {
	Status string `json:"status"`
}

// EventsListResponse contains webhook event records.
type EventsListResponse struct {
	Events []WebhookEvent `json:"events"`
}

// EventsRetryRequest retries failed webhook events. Empty list means all
// failed events.
type EventsRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// EventsRetryResponse reports number of retried events.
type EventsRetryResponse struct {
	Updated int64 `json:"updated"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalMeetings    int      `json:"total_meetings"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// MeetingHealthRequest fetches aggregate diagnostics.
type MeetingHealthRequest struct{}

// MeetingHealthResponse reports meeting and event queue health.
type MeetingHealthResponse struct {
	Total         int `json:"total"`
	Scheduled     int `json:"scheduled"`
	InProgress    int `json:"in_progress"`
	Processing    int `json:"processing"`
	Done          int `json:"done"`
	Errored       int `json:"errored"`
	PendingEvents int `json:"pending_events"`
	FailedEvents  int `json:"failed_events"`
}
