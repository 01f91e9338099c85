package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateCalendarEvent inserts a calendar entry for a user.
func (s *Store) CreateCalendarEvent(ctx context.Context, event *CalendarEvent) (*CalendarEvent, error) {
	if event == nil {
		return nil, errors.New("calendar event is nil")
	}
	if event.UserID == 0 {
		return nil, errors.New("user id is required")
	}
	if strings.TrimSpace(event.Title) == "" {
		return nil, errors.New("title is required")
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO calendar_events (user_id, title, description, recurrence, start_time, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.UserID,
		event.Title,
		nullableString(event.Description),
		nullableString(event.Recurrence),
		nullableTime(event.StartTime),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCalendarEvent(ctx, id)
}

// GetCalendarEvent fetches a calendar entry by identifier.
func (s *Store) GetCalendarEvent(ctx context.Context, id int64) (*CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM calendar_events WHERE id = ?`, id)
	event, err := scanCalendarEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return event, nil
}

// ListCalendarEventsForUser returns a user's calendar entries in creation order.
func (s *Store) ListCalendarEventsForUser(ctx context.Context, userID int64) ([]*CalendarEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+calendarColumns+` FROM calendar_events WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []*CalendarEvent
	for rows.Next() {
		event, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// RemoveCalendarEvent deletes a calendar entry by identifier.
func (s *Store) RemoveCalendarEvent(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
