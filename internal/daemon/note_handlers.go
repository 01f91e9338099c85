package daemon

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
)

// handleNotes lists completed meetings newest-first. Notes are a
// projection over meetings: the transcript and summary captured for a
// finished call are the meeting's notes.
func (s *apiServer) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	offset, limit := pageParams(r)
	meetings, total, err := s.daemon.ListMeetingPage(r.Context(), offset, limit, nil, store.StatusDone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MeetingList{
		Meetings: api.FromMeetings(meetings),
		Total:    total,
	})
}

// handleNote routes /api/notes/{meeting_id}, /api/notes/meeting/{url},
// and /api/notes/entry/{note_id}.
func (s *apiServer) handleNote(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/notes/")

	switch {
	case strings.HasPrefix(rest, "meeting/"):
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.noteByMeetingURL(w, r)
	case strings.HasPrefix(rest, "entry/"):
		idPart := strings.TrimPrefix(rest, "entry/")
		switch r.Method {
		case http.MethodDelete:
			s.deleteNoteEntry(w, r, idPart)
		case http.MethodPatch:
			s.updateNoteEntry(w, r, idPart)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid meeting id")
			return
		}
		meeting := s.lookupMeeting(w, r, id)
		if meeting == nil {
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromMeeting(meeting))
	}
}

// noteByMeetingURL looks a meeting up by its call link. Links arrive
// percent-encoded so their slashes survive mux path cleaning.
func (s *apiServer) noteByMeetingURL(w http.ResponseWriter, r *http.Request) {
	encoded := strings.TrimPrefix(r.URL.EscapedPath(), "/api/notes/meeting/")
	meetingURL, err := url.PathUnescape(encoded)
	if err != nil {
		meetingURL = encoded
	}
	meetingURL = strings.TrimSpace(meetingURL)
	if meetingURL == "" {
		s.writeError(w, http.StatusBadRequest, "meeting URL is required")
		return
	}

	meeting, err := s.daemon.store.GetByMeetingURL(r.Context(), meetingURL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if meeting == nil {
		s.writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromMeeting(meeting))
}

// updateNoteEntry replaces a note's content, keeping its meeting and
// author attribution intact.
func (s *apiServer) updateNoteEntry(w http.ResponseWriter, r *http.Request, idPart string) {
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var req createNoteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeError(w, http.StatusBadRequest, "Note content is required")
		return
	}
	note, err := s.daemon.store.GetNote(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if note == nil {
		s.writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	note.Content = req.Content
	if err := s.daemon.store.UpdateNote(r.Context(), note); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.log().Info("note updated", logging.Int64("note_id", id))
	s.writeJSON(w, http.StatusOK, api.FromNote(note))
}

func (s *apiServer) deleteNoteEntry(w http.ResponseWriter, r *http.Request, idPart string) {
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	removed, err := s.daemon.store.RemoveNote(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	s.log().Info("note removed", logging.Int64("note_id", id))
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted successfully"})
}
