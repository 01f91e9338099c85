package api

import (
	"context"

	"github.com/avlowe/minute/internal/store"
)

// MeetingReader abstracts meeting persistence interactions needed for API
// queries.
type MeetingReader interface {
	List(ctx context.Context, statuses ...store.Status) ([]*store.Meeting, error)
	GetByID(ctx context.Context, id int64) (*store.Meeting, error)
	Stats(ctx context.Context) (map[store.Status]int, error)
}

// MeetingService exposes read-only meeting operations returning API DTOs.
type MeetingService struct {
	store MeetingReader
}

// NewMeetingService constructs a MeetingService around the provided reader.
func NewMeetingService(store MeetingReader) *MeetingService {
	if store == nil {
		return nil
	}
	return &MeetingService{store: store}
}

// List returns meetings filtered by status.
func (s *MeetingService) List(ctx context.Context, statuses ...store.Status) ([]Meeting, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	meetings, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromMeetings(meetings), nil
}

// Stats returns meeting summary counts keyed by status string.
func (s *MeetingService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeMeetingStats(stats), nil
}

// Describe fetches a single meeting.
func (s *MeetingService) Describe(ctx context.Context, id int64) (*Meeting, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	meeting, err := s.store.GetByID(ctx, id)
	if err != nil || meeting == nil {
		return nil, err
	}
	dto := FromMeeting(meeting)
	return &dto, nil
}
