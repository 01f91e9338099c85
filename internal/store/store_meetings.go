package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMeetingTitle is used when callers supply no title.
const DefaultMeetingTitle = "Untitled Meeting"

// ErrBotIDConflict indicates a meeting already tracks the given bot.
var ErrBotIDConflict = errors.New("bot id already tracked")

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultMeetingTitle
	}
	return title
}

// NewMeetingWithBot inserts a meeting that already has a bot attending it.
func (s *Store) NewMeetingWithBot(ctx context.Context, title, meetingURL, botID string, userID *int64) (*Meeting, error) {
	if strings.TrimSpace(botID) == "" {
		return nil, errors.New("bot id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO meetings (
            title, meeting_url, status, bot_id, user_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		normalizeTitle(title),
		nullableString(meetingURL),
		StatusInProgress,
		botID,
		nullableInt64(userID),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrBotIDConflict, botID)
		}
		return nil, fmt.Errorf("insert meeting: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// NewScheduledMeeting inserts a meeting awaiting bot dispatch at its scheduled time.
func (s *Store) NewScheduledMeeting(ctx context.Context, title, meetingURL string, scheduledTime time.Time, userID *int64) (*Meeting, error) {
	if strings.TrimSpace(meetingURL) == "" {
		return nil, errors.New("meeting url is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO meetings (
            title, meeting_url, status, scheduled_time, user_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		normalizeTitle(title),
		meetingURL,
		StatusScheduled,
		scheduledTime.UTC().Format(time.RFC3339Nano),
		nullableInt64(userID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled meeting: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a meeting by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return meeting, nil
}

// GetByBotID returns the meeting tracking a bot, or nil when none matches.
func (s *Store) GetByBotID(ctx context.Context, botID string) (*Meeting, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE bot_id = ? LIMIT 1`,
		botID,
	)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting by bot: %w", err)
	}
	return meeting, nil
}

// GetByMeetingURL returns the most recent meeting recorded for a URL, or nil
// when none matches. Recurring meetings reuse URLs, so newest wins.
func (s *Store) GetByMeetingURL(ctx context.Context, meetingURL string) (*Meeting, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE meeting_url = ?
         ORDER BY created_at DESC, id DESC LIMIT 1`,
		meetingURL,
	)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting by url: %w", err)
	}
	return meeting, nil
}

// Update persists changes to an existing meeting. Status changes that race
// the lifecycle workers should go through TransitionStatus instead.
func (s *Store) Update(ctx context.Context, meeting *Meeting) error {
	if meeting == nil {
		return errors.New("meeting is nil")
	}
	meeting.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE meetings
         SET title = ?, meeting_url = ?, status = ?, bot_id = ?, transcript_json = ?,
             summary_json = ?, participants_json = ?, duration = ?, scheduled_time = ?,
             user_id = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		normalizeTitle(meeting.Title),
		nullableString(meeting.MeetingURL),
		meeting.Status,
		nullableString(meeting.BotID),
		nullableString(meeting.TranscriptJSON),
		nullableString(meeting.SummaryJSON),
		nullableString(meeting.ParticipantsJSON),
		nullableString(meeting.Duration),
		nullableTime(meeting.ScheduledTime),
		nullableInt64(meeting.UserID),
		nullableString(meeting.ErrorMessage),
		meeting.UpdatedAt.Format(time.RFC3339Nano),
		meeting.ID,
	); err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return nil
}

// List returns meetings filtered by status set (or all meetings when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Meeting, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + meetingColumns + ` FROM meetings`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, rows.Err()
}

// ListPage returns one page of meetings newest first along with the total
// number of rows matching the filter. A non-nil userID narrows the listing
// to that owner.
func (s *Store) ListPage(ctx context.Context, offset, limit int, userID *int64, statuses ...Status) ([]*Meeting, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var (
		clauses []string
		args    []any
	)
	if len(statuses) > 0 {
		clauses = append(clauses, `status IN (`+makePlaceholders(len(statuses))+`)`)
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	if userID != nil {
		clauses = append(clauses, `user_id = ?`)
		args = append(args, *userID)
	}
	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count meetings: %w", err)
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list meeting page: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, 0, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, total, rows.Err()
}

// TransitionStatus moves a meeting between lifecycle states using a
// compare-and-set on the current status. It returns false when the meeting
// is no longer in the expected state or the transition is not allowed.
func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	if !CanTransition(from, to) {
		return false, nil
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("transition meeting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkErrored moves a meeting to the errored state with a message. Meetings
// already in a terminal state are left untouched.
func (s *Store) MarkErrored(ctx context.Context, id int64, message string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE meetings SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		StatusErrored,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusDone,
		StatusErrored,
	)
	if err != nil {
		return false, fmt.Errorf("mark meeting errored: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// AttachBot binds a bot to a scheduled meeting and moves it to in_progress.
// Returns false when the meeting is no longer awaiting dispatch.
func (s *Store) AttachBot(ctx context.Context, id int64, botID string) (bool, error) {
	if strings.TrimSpace(botID) == "" {
		return false, errors.New("bot id is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE meetings SET status = ?, bot_id = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusInProgress,
		botID,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusScheduled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%w: %s", ErrBotIDConflict, botID)
		}
		return false, fmt.Errorf("attach bot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DueScheduled returns scheduled meetings whose dispatch time has arrived
// and that do not have a bot yet.
func (s *Store) DueScheduled(ctx context.Context, now time.Time) ([]*Meeting, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+meetingColumns+` FROM meetings
         WHERE status = ? AND bot_id IS NULL AND scheduled_time IS NOT NULL AND scheduled_time <= ?
         ORDER BY scheduled_time`,
		StatusScheduled,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("due scheduled meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, rows.Err()
}

// Remove deletes a meeting by identifier. Webhook events and notes cascade.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete meeting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveScheduled deletes a meeting only while it still awaits dispatch.
// Returns false once the scheduler has attached a bot or the meeting left
// the scheduled state.
func (s *Store) RemoveScheduled(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM meetings WHERE id = ? AND status = ? AND bot_id IS NULL`,
		id,
		StatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("delete scheduled meeting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
