package daemon

import (
	"net/http"

	gocache "github.com/patrickmn/go-cache"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/logging"
)

// handleWebhook receives provider bot events. Deliveries are validated,
// persisted to the event queue, and acknowledged; all heavy processing
// happens later on the worker pool. The provider retries non-200
// responses, so an ack is only written after the event row is durable.
func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	payload, err := lifecycle.ParsePayload(body)
	if err != nil {
		s.log().Warn("webhook rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "webhook_rejected"),
		)
		s.writeError(w, http.StatusBadRequest, "Invalid webhook payload - missing bot ID or event name")
		return
	}

	botID := payload.BotID()
	logger := s.log().With(
		logging.String(logging.FieldBotID, botID),
		logging.String(logging.FieldEvent, payload.Event),
	)

	// Redeliveries of an event we already persisted are acknowledged
	// without a second queue row.
	dedupKey := botID + "\x00" + payload.Event
	if _, found := s.seen.Get(dedupKey); found {
		logger.Debug("duplicate webhook suppressed",
			logging.String(logging.FieldEventType, "webhook_duplicate"))
		s.writeJSON(w, http.StatusOK, api.WebhookAck{
			Message: "Webhook received and processing started",
			BotID:   botID,
			Event:   payload.Event,
		})
		return
	}

	meeting, err := s.daemon.store.GetByBotID(r.Context(), botID)
	if err != nil {
		logger.Error("webhook meeting lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}
	if meeting == nil {
		logger.Warn("no meeting found for bot",
			logging.String(logging.FieldEventType, "webhook_unmatched"))
		s.writeJSON(w, http.StatusOK, api.WebhookAck{
			Message: "Webhook processed but no matching meeting found",
			BotID:   botID,
			Event:   payload.Event,
		})
		return
	}

	evt, err := s.daemon.store.EnqueueEvent(r.Context(), botID, meeting.ID, payload.Event, string(body))
	if err != nil {
		logger.Error("webhook enqueue failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}
	s.seen.Set(dedupKey, evt.ID, gocache.DefaultExpiration)

	logger.Info("webhook enqueued",
		logging.Int64(logging.FieldMeetingID, meeting.ID),
		logging.Int64("event_id", evt.ID),
		logging.String(logging.FieldEventType, "webhook_enqueued"),
	)
	s.writeJSON(w, http.StatusOK, api.WebhookAck{
		Message: "Webhook received and processing started",
		BotID:   botID,
		Event:   payload.Event,
	})
}
