package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/services"
	"github.com/avlowe/minute/internal/store"
)

func (m *Manager) runScheduler(ctx context.Context) {
	defer m.wg.Done()
	logger := m.laneLogger("lifecycle-scheduler")

	interval := time.Duration(m.cfg.Workflow.SchedulerInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Catch up on meetings whose dispatch time passed while the daemon was
	// down before the first tick.
	m.dispatchDue(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.dispatchDue(ctx, logger)
		}
	}
}

func (m *Manager) dispatchDue(ctx context.Context, logger *slog.Logger) {
	due, err := m.store.DueScheduled(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.setLastError(err)
		logger.Error("failed to list due scheduled meetings",
			logging.Error(err),
			logging.String(logging.FieldEventType, "scheduler_query_failed"),
			logging.String(logging.FieldErrorHint, "check meeting database access"),
		)
		return
	}

	for _, meeting := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.dispatchMeeting(ctx, logger, meeting)
	}
}

// dispatchMeeting creates a provider bot for one due meeting and attaches it.
// Dispatch failures leave the meeting scheduled so the next tick retries.
func (m *Manager) dispatchMeeting(ctx context.Context, logger *slog.Logger, meeting *store.Meeting) {
	meetingCtx := services.WithMeetingID(ctx, meeting.ID)
	meetingLogger := logging.WithContext(meetingCtx, logger)

	bot, err := m.dispatcher.CreateBot(meetingCtx, meeting.MeetingURL)
	if err != nil {
		m.setLastError(err)
		meetingLogger.Error("bot dispatch failed; will retry next tick",
			logging.Error(err),
			logging.Alert("bot_dispatch_failed"),
			logging.String(logging.FieldEventType, "bot_dispatch_failed"),
			logging.String(logging.FieldErrorHint, "check provider credentials and connectivity"),
		)
		m.notifyDispatchError(meetingCtx, meetingLogger, meeting, err)
		return
	}

	attached, err := m.store.AttachBot(meetingCtx, meeting.ID, bot.ID)
	if err != nil {
		m.setLastError(err)
		meetingLogger.Error("failed to attach dispatched bot",
			logging.Error(err),
			logging.String(logging.FieldBotID, bot.ID),
		)
		return
	}
	if !attached {
		// The meeting was removed or dispatched concurrently; the provider
		// bot will idle out on its own.
		meetingLogger.Warn("meeting no longer awaiting dispatch; bot left unattached",
			logging.String(logging.FieldBotID, bot.ID),
		)
		return
	}

	meetingLogger.Info("bot dispatched for scheduled meeting",
		logging.String(logging.FieldEventType, "bot_dispatched"),
		logging.String(logging.FieldBotID, bot.ID),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyMeetingStarted(meetingCtx, meeting.Title); err != nil {
			meetingLogger.Debug("meeting started notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyDispatchError(ctx context.Context, logger *slog.Logger, meeting *store.Meeting, dispatchErr error) {
	if m.notifier == nil {
		return
	}
	contextLabel := fmt.Sprintf("bot dispatch (meeting #%d)", meeting.ID)
	if err := m.notifier.NotifyError(ctx, dispatchErr, contextLabel); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Debug("dispatch error notification failed", logging.Error(err))
	}
}
