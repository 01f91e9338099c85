package daemon

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
)

type sendBotRequest struct {
	MeetingURL string `json:"meeting_url"`
	UserID     *int64 `json:"user_id"`
}

type scheduleBotRequest struct {
	MeetingURL    string `json:"meeting_url"`
	ScheduledTime string `json:"scheduled_time"`
	Title         string `json:"title"`
	UserID        *int64 `json:"user_id"`
}

// handleSendBot dispatches a provider bot to an active meeting and
// persists the tracking record. No meeting row is written when the
// provider call fails.
func (s *apiServer) handleSendBot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req sendBotRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	meetingURL := strings.TrimSpace(req.MeetingURL)
	if meetingURL == "" {
		s.writeError(w, http.StatusBadRequest, "Meeting URL is required")
		return
	}

	bot, err := s.daemon.provider.CreateBot(r.Context(), meetingURL)
	if err != nil {
		s.log().Error("bot dispatch failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	meeting, err := s.daemon.store.NewMeetingWithBot(r.Context(), "Meeting in Progress", meetingURL, bot.ID, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrBotIDConflict) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeServiceError(w, err)
		return
	}

	s.log().Info("bot dispatched",
		logging.Int64(logging.FieldMeetingID, meeting.ID),
		logging.String(logging.FieldBotID, bot.ID),
		logging.String(logging.FieldEventType, "bot_dispatched"),
	)
	if s.daemon.notifier != nil {
		if err := s.daemon.notifier.NotifyMeetingStarted(r.Context(), meeting.Title); err != nil {
			s.log().Debug("meeting started notification failed", logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, api.FromMeeting(meeting))
}

// handleScheduleBot records a future meeting; the scheduler lane
// dispatches the bot when its time arrives.
func (s *apiServer) handleScheduleBot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req scheduleBotRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	meetingURL := strings.TrimSpace(req.MeetingURL)
	if meetingURL == "" {
		s.writeError(w, http.StatusBadRequest, "Meeting URL is required")
		return
	}
	if strings.TrimSpace(req.ScheduledTime) == "" {
		s.writeError(w, http.StatusBadRequest, "scheduled_time is required")
		return
	}
	scheduledTime, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "scheduled_time must be an RFC3339 timestamp")
		return
	}

	meeting, err := s.daemon.store.NewScheduledMeeting(r.Context(), req.Title, meetingURL, scheduledTime, req.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.log().Info("bot scheduled",
		logging.Int64(logging.FieldMeetingID, meeting.ID),
		logging.String("scheduled_time", scheduledTime.UTC().Format(time.RFC3339)),
		logging.String(logging.FieldEventType, "bot_scheduled"),
	)
	s.writeJSON(w, http.StatusOK, api.FromMeeting(meeting))
}

// handleUnscheduleBot cancels a meeting that is still waiting for its
// bot. Once the scheduler has dispatched, cancellation is refused.
func (s *apiServer) handleUnscheduleBot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/schedule-bot/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	meeting, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if meeting == nil {
		s.writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}

	removed, err := s.daemon.store.RemoveScheduled(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusConflict, "bot already dispatched for this meeting")
		return
	}

	s.log().Info("scheduled bot cancelled",
		logging.Int64(logging.FieldMeetingID, id),
		logging.String(logging.FieldEventType, "bot_unscheduled"),
	)
	s.writeJSON(w, http.StatusOK, map[string]string{"detail": "Scheduled bot cancelled successfully"})
}

// handleBotStatus asks the provider whether a bot is currently recording.
func (s *apiServer) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	botID := strings.TrimPrefix(r.URL.Path, "/api/bot-status/")
	if botID == "" || strings.Contains(botID, "/") {
		s.writeError(w, http.StatusNotFound, "bot not found")
		return
	}

	inMeeting, err := s.daemon.provider.IsBotInMeeting(r.Context(), botID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.BotStatus{BotID: botID, InMeeting: inMeeting})
}
