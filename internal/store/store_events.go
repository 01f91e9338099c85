package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// claimRetryAttempts bounds how many times a claim re-selects after losing
// a compare-and-set race with another worker.
const claimRetryAttempts = 3

// EnqueueEvent persists a webhook event for durable processing. The event is
// stored before the HTTP response acknowledges it, so delivery survives
// restarts.
func (s *Store) EnqueueEvent(ctx context.Context, botID string, meetingID int64, event, payloadJSON string) (*WebhookEvent, error) {
	if botID == "" {
		return nil, errors.New("bot id is required")
	}
	if event == "" {
		return nil, errors.New("event name is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO webhook_events (
            bot_id, meeting_id, event, payload_json, status, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		botID,
		meetingID,
		event,
		nullableString(payloadJSON),
		EventStatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert webhook event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetEvent(ctx, id)
}

// GetEvent fetches a webhook event by identifier.
func (s *Store) GetEvent(ctx context.Context, id int64) (*WebhookEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return event, nil
}

// ClaimNextEvent atomically claims the oldest pending event whose bot has no
// event in flight, ensuring per-bot serial processing across workers. The
// claim increments the attempt counter and stamps a heartbeat. Returns nil
// when nothing is claimable.
func (s *Store) ClaimNextEvent(ctx context.Context) (*WebhookEvent, error) {
	for attempt := 0; attempt < claimRetryAttempts; attempt++ {
		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM webhook_events
             WHERE status = ?
               AND bot_id NOT IN (SELECT bot_id FROM webhook_events WHERE status = ?)
             ORDER BY id LIMIT 1`,
			EventStatusPending,
			EventStatusProcessing,
		)
		var id int64
		err := row.Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select claimable event: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE webhook_events
             SET status = ?, attempts = attempts + 1, heartbeat_at = ?, updated_at = ?
             WHERE id = ? AND status = ?
               AND bot_id NOT IN (SELECT bot_id FROM webhook_events WHERE status = ?)`,
			EventStatusProcessing,
			now,
			now,
			id,
			EventStatusPending,
			EventStatusProcessing,
		)
		if err != nil {
			return nil, fmt.Errorf("claim event: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			return s.GetEvent(ctx, id)
		}
		// Lost the race to another worker; re-select.
	}
	return nil, nil
}

// UpdateEventHeartbeat refreshes the heartbeat for an in-flight event.
func (s *Store) UpdateEventHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE webhook_events SET heartbeat_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		EventStatusProcessing,
	); err != nil {
		return fmt.Errorf("update event heartbeat: %w", err)
	}
	return nil
}

// CompleteEvent marks a claimed event as processed.
func (s *Store) CompleteEvent(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE webhook_events
         SET status = ?, last_error = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE id = ?`,
		EventStatusDone,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("complete event: %w", err)
	}
	return nil
}

// ReleaseEvent returns a claimed event to pending after a transient failure
// so another attempt can pick it up. The attempt count persists.
func (s *Store) ReleaseEvent(ctx context.Context, id int64, lastError string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE webhook_events
         SET status = ?, last_error = ?, heartbeat_at = NULL, updated_at = ?
         WHERE id = ?`,
		EventStatusPending,
		nullableString(lastError),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("release event: %w", err)
	}
	return nil
}

// FailEvent marks a claimed event as permanently failed.
func (s *Store) FailEvent(ctx context.Context, id int64, lastError string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE webhook_events
         SET status = ?, last_error = ?, heartbeat_at = NULL, updated_at = ?
         WHERE id = ?`,
		EventStatusFailed,
		nullableString(lastError),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("fail event: %w", err)
	}
	return nil
}

// ReclaimStaleEvents returns in-flight events whose heartbeats expired back
// to pending so surviving workers can pick them up.
func (s *Store) ReclaimStaleEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE webhook_events
         SET status = ?, heartbeat_at = NULL, updated_at = ?
         WHERE status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?`,
		EventStatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		EventStatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale events: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedEvents moves failed events back to pending with a fresh attempt
// budget. With no ids every failed event is retried.
func (s *Store) RetryFailedEvents(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE webhook_events
             SET status = ?, attempts = 0, last_error = NULL, updated_at = ?
             WHERE status = ?`,
			EventStatusPending,
			now,
			EventStatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed events: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, EventStatusPending, now, EventStatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE webhook_events
        SET status = ?, attempts = 0, last_error = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected events: %w", err)
	}
	return res.RowsAffected()
}

// EventStats returns a count of webhook events grouped by status.
func (s *Store) EventStats(ctx context.Context) (map[EventStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM webhook_events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[EventStatus]int)
	for rows.Next() {
		var status EventStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ListEventsForMeeting returns the delivery history for a meeting in arrival order.
func (s *Store) ListEventsForMeeting(ctx context.Context, meetingID int64) ([]*WebhookEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM webhook_events WHERE meeting_id = ? ORDER BY id`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events for meeting: %w", err)
	}
	defer rows.Close()

	var events []*WebhookEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListEventsByStatus returns webhook events in a given state in arrival order.
func (s *Store) ListEventsByStatus(ctx context.Context, status EventStatus) ([]*WebhookEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM webhook_events WHERE status = ? ORDER BY id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()

	var events []*WebhookEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneDoneEvents deletes processed events older than the cutoff to keep the
// queue table small.
func (s *Store) PruneDoneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM webhook_events WHERE status = ? AND updated_at < ?`,
		EventStatusDone,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune done events: %w", err)
	}
	return res.RowsAffected()
}
