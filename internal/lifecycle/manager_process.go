package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/services"
	"github.com/avlowe/minute/internal/store"
)

func (m *Manager) processEvent(ctx context.Context, laneLogger *slog.Logger, evt *store.WebhookEvent) error {
	requestID := uuid.NewString()
	eventCtx := withEventContext(ctx, evt, requestID)
	logger := logging.WithContext(eventCtx, laneLogger)

	start := time.Now()
	logger.Info("event processing started",
		logging.String(logging.FieldEventType, "event_start"),
		logging.String("kind", string(ParseEventKind(evt.Event))),
		logging.Int("attempt", evt.Attempts),
	)

	execErr := m.executeWithHeartbeat(eventCtx, evt)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("event interrupted by shutdown; reclaimer will reset it")
			return execErr
		}
		m.handleEventFailure(eventCtx, logger, evt, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if err := m.store.CompleteEvent(eventCtx, evt.ID); err != nil {
		wrapped := fmt.Errorf("complete event: %w", err)
		logger.Error("failed to mark event done", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	logger.Info("event processing completed",
		logging.String(logging.FieldEventType, "event_complete"),
		logging.Duration("event_duration", time.Since(start)),
	)
	m.setLastEvent(evt)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, evt *store.WebhookEvent) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, evt.ID)

	execErr := m.processor.HandleEvent(ctx, evt)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// handleEventFailure persists the failure outcome for a claimed event.
// Permanent failures and exhausted attempt budgets mark the event failed and
// drive the owning meeting to errored; transient failures release the event
// back to pending for another attempt.
func (m *Manager) handleEventFailure(ctx context.Context, logger *slog.Logger, evt *store.WebhookEvent, execErr error) {
	message := strings.TrimSpace(execErr.Error())
	if message == "" {
		message = "event processing failed"
	}

	permanent := services.FailureStatus(execErr) == store.EventStatusFailed
	exhausted := evt.Attempts >= m.maxAttempts()

	if !permanent && !exhausted {
		logger.Warn("event processing failed; will retry",
			logging.Error(execErr),
			logging.String(logging.FieldEventType, "event_retry"),
			logging.Int("attempt", evt.Attempts),
			logging.Int("max_attempts", m.maxAttempts()),
		)
		if err := m.store.ReleaseEvent(ctx, evt.ID, message); err != nil {
			logger.Error("failed to release event for retry", logging.Error(err))
		}
		return
	}

	logger.Error("event processing failed permanently",
		logging.Error(execErr),
		logging.Alert("event_failure"),
		logging.String(logging.FieldEventType, "event_failure"),
		logging.Int("attempt", evt.Attempts),
		logging.Bool("attempts_exhausted", exhausted),
	)
	if err := m.store.FailEvent(ctx, evt.ID, message); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist event failure")
		} else {
			logger.Error("failed to mark event failed", logging.Error(err))
		}
	}

	if moved, err := m.store.MarkErrored(ctx, evt.MeetingID, message); err != nil {
		logger.Error("failed to mark meeting errored", logging.Error(err))
	} else if moved {
		logger.Info("meeting marked errored after event failure",
			logging.String(logging.FieldEventType, "meeting_errored"),
		)
	}

	m.setLastEvent(evt)
	m.notifyEventError(ctx, logger, evt, execErr)
}

func (m *Manager) notifyEventError(ctx context.Context, logger *slog.Logger, evt *store.WebhookEvent, execErr error) {
	if m.notifier == nil || execErr == nil {
		return
	}
	contextLabel := fmt.Sprintf("%s (meeting #%d)", evt.Event, evt.MeetingID)
	if err := m.notifier.NotifyError(ctx, execErr, contextLabel); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send error notification")
		} else {
			logger.Debug("event error notification failed", logging.Error(err))
		}
	}
}

func withEventContext(ctx context.Context, evt *store.WebhookEvent, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if evt != nil {
		ctx = services.WithMeetingID(ctx, evt.MeetingID)
		if bot := strings.TrimSpace(evt.BotID); bot != "" {
			ctx = services.WithBotID(ctx, bot)
		}
		if event := strings.TrimSpace(evt.Event); event != "" {
			ctx = services.WithEvent(ctx, event)
		}
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
