package daemon

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
)

// defaultOccurrenceWindow bounds occurrence expansion when the caller
// omits the until parameter.
const defaultOccurrenceWindow = 30 * 24 * time.Hour

type createCalendarEventRequest struct {
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Recurrence  string `json:"recurrence"`
	StartTime   string `json:"start_time"`
}

// handleCalendarEvents creates a calendar entry or lists a user's entries.
func (s *apiServer) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createCalendarEvent(w, r)
	case http.MethodGet:
		raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if raw == "" {
			s.writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			s.writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
			return
		}
		events, err := s.daemon.store.ListCalendarEventsForUser(r.Context(), userID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.CalendarEventList{Events: api.FromCalendarEvents(events)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) createCalendarEvent(w http.ResponseWriter, r *http.Request) {
	var req createCalendarEventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := api.ValidateRecurrence(req.Recurrence); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var startTime *time.Time
	if raw := strings.TrimSpace(req.StartTime); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "start_time must be an RFC3339 timestamp")
			return
		}
		utc := parsed.UTC()
		startTime = &utc
	}
	if req.Recurrence != "" && startTime == nil {
		s.writeError(w, http.StatusBadRequest, "recurring events require a start_time")
		return
	}

	owner, err := s.daemon.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if owner == nil {
		s.writeError(w, http.StatusBadRequest, "user does not exist")
		return
	}

	event, err := s.daemon.store.CreateCalendarEvent(r.Context(), &store.CalendarEvent{
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Recurrence:  req.Recurrence,
		StartTime:   startTime,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.log().Info("calendar event created",
		logging.Int64("calendar_event_id", event.ID),
		logging.Int64("user_id", event.UserID),
	)
	s.writeJSON(w, http.StatusCreated, api.FromCalendarEvent(event))
}

// handleCalendarEvent routes /api/calendar-events/{id} and its
// occurrences subresource.
func (s *apiServer) handleCalendarEvent(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/calendar-events/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid calendar event id")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			event := s.lookupCalendarEvent(w, r, id)
			if event == nil {
				return
			}
			s.writeJSON(w, http.StatusOK, api.FromCalendarEvent(event))
		case http.MethodDelete:
			removed, err := s.daemon.store.RemoveCalendarEvent(r.Context(), id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			if !removed {
				s.writeError(w, http.StatusNotFound, "Calendar event not found")
				return
			}
			s.log().Info("calendar event removed", logging.Int64("calendar_event_id", id))
			s.writeJSON(w, http.StatusOK, map[string]string{"message": "Calendar event deleted successfully"})
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "occurrences":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.calendarOccurrences(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) lookupCalendarEvent(w http.ResponseWriter, r *http.Request, id int64) *store.CalendarEvent {
	event, err := s.daemon.store.GetCalendarEvent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return nil
	}
	if event == nil {
		s.writeError(w, http.StatusNotFound, "Calendar event not found")
		return nil
	}
	return event
}

// calendarOccurrences expands a recurring event inside the requested
// window. Missing bounds default to a month starting now.
func (s *apiServer) calendarOccurrences(w http.ResponseWriter, r *http.Request, id int64) {
	event := s.lookupCalendarEvent(w, r, id)
	if event == nil {
		return
	}

	query := r.URL.Query()
	from := time.Now().UTC()
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "from must be an RFC3339 timestamp")
			return
		}
		from = parsed.UTC()
	}
	until := from.Add(defaultOccurrenceWindow)
	if raw := strings.TrimSpace(query.Get("until")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "until must be an RFC3339 timestamp")
			return
		}
		until = parsed.UTC()
	}
	if until.Before(from) {
		s.writeError(w, http.StatusBadRequest, "until must not precede from")
		return
	}

	occurrences, err := api.Occurrences(event, from, until)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.OccurrenceList{
		EventID:     event.ID,
		Occurrences: occurrences,
	})
}
