package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const meetingColumns = "id, title, meeting_url, status, bot_id, transcript_json, summary_json, participants_json, duration, scheduled_time, user_id, error_message, created_at, updated_at"

const eventColumns = "id, bot_id, meeting_id, event, payload_json, status, attempts, last_error, heartbeat_at, created_at, updated_at"

const userColumns = "id, email, password_hash, created_at"

const noteColumns = "id, meeting_id, user_id, content, created_at, updated_at"

const calendarColumns = "id, user_id, title, description, recurrence, start_time, created_at"

func scanMeeting(scanner interface{ Scan(dest ...any) error }) (*Meeting, error) {
	var (
		id           int64
		title        sql.NullString
		meetingURL   sql.NullString
		statusStr    string
		botID        sql.NullString
		transcript   sql.NullString
		summary      sql.NullString
		participants sql.NullString
		duration     sql.NullString
		scheduledRaw sql.NullString
		userID       sql.NullInt64
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&meetingURL,
		&statusStr,
		&botID,
		&transcript,
		&summary,
		&participants,
		&duration,
		&scheduledRaw,
		&userID,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	meeting := &Meeting{
		ID:               id,
		Title:            title.String,
		MeetingURL:       meetingURL.String,
		Status:           Status(statusStr),
		BotID:            botID.String,
		TranscriptJSON:   transcript.String,
		SummaryJSON:      summary.String,
		ParticipantsJSON: participants.String,
		Duration:         duration.String,
		ErrorMessage:     errorMessage.String,
	}
	if userID.Valid {
		value := userID.Int64
		meeting.UserID = &value
	}
	if scheduledRaw.Valid {
		if scheduled, err := parseTimeString(scheduledRaw.String); err == nil {
			meeting.ScheduledTime = &scheduled
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		meeting.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		meeting.UpdatedAt = updated
	}
	return meeting, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*WebhookEvent, error) {
	var (
		id           int64
		botID        string
		meetingID    int64
		eventName    string
		payload      sql.NullString
		statusStr    string
		attempts     sql.NullInt64
		lastError    sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&botID,
		&meetingID,
		&eventName,
		&payload,
		&statusStr,
		&attempts,
		&lastError,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	event := &WebhookEvent{
		ID:          id,
		BotID:       botID,
		MeetingID:   meetingID,
		Event:       eventName,
		PayloadJSON: payload.String,
		Status:      EventStatus(statusStr),
		Attempts:    int(attempts.Int64),
		LastError:   lastError.String,
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			event.HeartbeatAt = &heartbeat
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		event.UpdatedAt = updated
	}
	return event, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		id           int64
		email        string
		passwordHash string
		createdRaw   sql.NullString
	)
	if err := scanner.Scan(&id, &email, &passwordHash, &createdRaw); err != nil {
		return nil, err
	}
	user := &User{ID: id, Email: email, PasswordHash: passwordHash}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		user.CreatedAt = created
	}
	return user, nil
}

func scanNote(scanner interface{ Scan(dest ...any) error }) (*Note, error) {
	var (
		id         int64
		meetingID  int64
		userID     sql.NullInt64
		content    string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &meetingID, &userID, &content, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	note := &Note{ID: id, MeetingID: meetingID, Content: content}
	if userID.Valid {
		value := userID.Int64
		note.UserID = &value
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		note.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		note.UpdatedAt = updated
	}
	return note, nil
}

func scanCalendarEvent(scanner interface{ Scan(dest ...any) error }) (*CalendarEvent, error) {
	var (
		id          int64
		userID      int64
		title       string
		description sql.NullString
		recurrence  sql.NullString
		startRaw    sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &userID, &title, &description, &recurrence, &startRaw, &createdRaw); err != nil {
		return nil, err
	}
	event := &CalendarEvent{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description.String,
		Recurrence:  recurrence.String,
	}
	if startRaw.Valid {
		if start, err := parseTimeString(startRaw.String); err == nil {
			event.StartTime = &start
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	return event, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
