package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/services/changeagent"
	"github.com/avlowe/minute/internal/services/recall"
	"github.com/avlowe/minute/internal/store"
)

// videoExpiryLabel is the provider's stated lifetime for pre-signed
// recording links, echoed verbatim in video responses.
const videoExpiryLabel = "6 hours"

type createNoteRequest struct {
	Content string `json:"content"`
	UserID  *int64 `json:"user_id"`
}

// pageParams reads offset/limit query values, defaulting to the first
// hundred rows.
func pageParams(r *http.Request) (offset, limit int) {
	query := r.URL.Query()
	offset, _ = strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	return offset, limit
}

// handleMeetings lists meetings newest-first with optional status and
// owner filters.
func (s *apiServer) handleMeetings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	offset, limit := pageParams(r)

	var userID *int64
	if raw := strings.TrimSpace(query.Get("user_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "user_id must be an integer")
			return
		}
		userID = &parsed
	}

	var statuses []store.Status
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := store.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", strings.TrimSpace(part)))
				return
			}
			statuses = append(statuses, status)
		}
	}

	meetings, total, err := s.daemon.ListMeetingPage(r.Context(), offset, limit, userID, statuses...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MeetingList{
		Meetings: api.FromMeetings(meetings),
		Total:    total,
	})
}

// handleMeeting routes /api/meetings/{id} and its summarize, video, and
// notes subresources.
func (s *apiServer) handleMeeting(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/meetings/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			meeting := s.lookupMeeting(w, r, id)
			if meeting == nil {
				return
			}
			s.writeJSON(w, http.StatusOK, api.FromMeeting(meeting))
		case http.MethodDelete:
			s.deleteMeeting(w, r, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "summarize":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.summarizeMeeting(w, r, id)
	case "video":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.meetingVideo(w, r, id)
	case "notes":
		switch r.Method {
		case http.MethodPost:
			s.createMeetingNote(w, r, id)
		case http.MethodGet:
			s.listMeetingNotes(w, r, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

// lookupMeeting loads a meeting or answers 404, returning nil when the
// response has already been written.
func (s *apiServer) lookupMeeting(w http.ResponseWriter, r *http.Request, id int64) *store.Meeting {
	meeting, err := s.daemon.GetMeeting(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return nil
	}
	if meeting == nil {
		s.writeError(w, http.StatusNotFound, "Meeting not found")
		return nil
	}
	return meeting
}

func (s *apiServer) deleteMeeting(w http.ResponseWriter, r *http.Request, id int64) {
	removed, err := s.daemon.RemoveMeeting(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	s.log().Info("meeting removed",
		logging.Int64(logging.FieldMeetingID, id),
		logging.String(logging.FieldEventType, "meeting_removed"),
	)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Meeting deleted successfully"})
}

// summarizeMeeting regenerates the summary from the stored transcript.
// A summarizer failure leaves the meeting untouched.
func (s *apiServer) summarizeMeeting(w http.ResponseWriter, r *http.Request, id int64) {
	meeting := s.lookupMeeting(w, r, id)
	if meeting == nil {
		return
	}
	if !meeting.HasTranscript() {
		s.writeError(w, http.StatusBadRequest, "No transcript available for this meeting")
		return
	}

	var segments []recall.TranscriptSegment
	if err := json.Unmarshal([]byte(meeting.TranscriptJSON), &segments); err != nil {
		s.writeError(w, http.StatusInternalServerError, "stored transcript is unreadable")
		return
	}
	speech := make([]changeagent.Speech, 0, len(segments))
	for _, segment := range segments {
		speech = append(speech, changeagent.Speech{Name: segment.Name, Words: segment.Words})
	}
	var participants []string
	if strings.TrimSpace(meeting.ParticipantsJSON) != "" {
		if err := json.Unmarshal([]byte(meeting.ParticipantsJSON), &participants); err != nil {
			s.writeError(w, http.StatusInternalServerError, "stored participant list is unreadable")
			return
		}
	}

	summary, err := s.daemon.summarizer.Summarize(r.Context(), speech, participants)
	if err != nil {
		s.log().Error("summary regeneration failed",
			logging.Int64(logging.FieldMeetingID, id),
			logging.Error(err),
		)
		s.writeError(w, http.StatusBadGateway, "Failed to generate summary")
		return
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "encode summary")
		return
	}
	meeting.SummaryJSON = string(encoded)
	if err := s.daemon.store.Update(r.Context(), meeting); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.log().Info("summary regenerated",
		logging.Int64(logging.FieldMeetingID, id),
		logging.String(logging.FieldEventType, "summary_regenerated"),
	)
	s.writeJSON(w, http.StatusOK, api.SummaryResult{
		Success: true,
		Summary: json.RawMessage(encoded),
		Message: "Summary generated successfully",
	})
}

// meetingVideo resolves a fresh recording link. Provider links expire,
// so the URL is fetched on demand rather than stored.
func (s *apiServer) meetingVideo(w http.ResponseWriter, r *http.Request, id int64) {
	meeting := s.lookupMeeting(w, r, id)
	if meeting == nil {
		return
	}
	if meeting.Status != store.StatusDone {
		s.writeError(w, http.StatusBadRequest, "Meeting not completed yet")
		return
	}
	if meeting.BotID == "" {
		s.writeError(w, http.StatusBadRequest, "No bot ID found for this meeting")
		return
	}

	link, err := s.daemon.provider.ResolveVideoURL(r.Context(), meeting.BotID)
	if err != nil {
		s.log().Error("video link resolution failed",
			logging.Int64(logging.FieldMeetingID, id),
			logging.String(logging.FieldBotID, meeting.BotID),
			logging.Error(err),
		)
		s.writeError(w, http.StatusBadGateway, "Failed to fetch video URL")
		return
	}
	if link == "" {
		s.writeError(w, http.StatusNotFound, "No video available for this meeting")
		return
	}

	s.writeJSON(w, http.StatusOK, api.VideoURL{
		VideoURL:  link,
		ExpiresIn: videoExpiryLabel,
		Meeting:   api.FromMeeting(meeting),
	})
}

// createMeetingNote attaches a user-authored note to a meeting.
func (s *apiServer) createMeetingNote(w http.ResponseWriter, r *http.Request, id int64) {
	meeting := s.lookupMeeting(w, r, id)
	if meeting == nil {
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
	note, err := s.daemon.store.CreateNote(r.Context(), meeting.ID, req.UserID, req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromNote(note))
}

func (s *apiServer) listMeetingNotes(w http.ResponseWriter, r *http.Request, id int64) {
	meeting := s.lookupMeeting(w, r, id)
	if meeting == nil {
		return
	}
	notes, err := s.daemon.store.ListNotesForMeeting(r.Context(), meeting.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NoteList{Notes: api.FromNotes(notes)})
}
