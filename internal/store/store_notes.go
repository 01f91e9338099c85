package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateNote attaches a user-authored note to a meeting.
func (s *Store) CreateNote(ctx context.Context, meetingID int64, userID *int64, content string) (*Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("note content is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO notes (meeting_id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		meetingID,
		nullableInt64(userID),
		content,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetNote(ctx, id)
}

// GetNote fetches a note by identifier.
func (s *Store) GetNote(ctx context.Context, id int64) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// UpdateNote persists changes to a note's content.
func (s *Store) UpdateNote(ctx context.Context, note *Note) error {
	if note == nil {
		return errors.New("note is nil")
	}
	if strings.TrimSpace(note.Content) == "" {
		return errors.New("note content is required")
	}
	note.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`,
		note.Content,
		note.UpdatedAt.Format(time.RFC3339Nano),
		note.ID,
	); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// ListNotesForMeeting returns the notes attached to a meeting in creation order.
func (s *Store) ListNotesForMeeting(ctx context.Context, meetingID int64) ([]*Note, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+noteColumns+` FROM notes WHERE meeting_id = ? ORDER BY id`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes for meeting: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// RemoveNote deletes a note by identifier.
func (s *Store) RemoveNote(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
