package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avlowe/minute/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("lifecycle already running")
	}
	if m.processor == nil {
		m.mu.Unlock()
		return errors.New("lifecycle processor not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.workerCount()
	lanes := workers + 1
	if m.dispatcher != nil {
		lanes++
	}
	m.wg.Add(lanes)
	dispatcher := m.dispatcher
	m.mu.Unlock()

	for i := 1; i <= workers; i++ {
		go m.runWorker(runCtx, i)
	}
	go m.runReclaimer(runCtx)
	if dispatcher != nil {
		go m.runScheduler(runCtx)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()
	logger := m.laneLogger("lifecycle-worker").With(logging.Int("worker", workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		evt, err := m.store.ClaimNextEvent(ctx)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if evt == nil {
			m.waitForEventOrShutdown(ctx)
			continue
		}

		if err := m.processEvent(ctx, logger, evt); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	logger := m.laneLogger("lifecycle-reclaimer")

	interval := m.heartbeat.heartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Rescue events stranded in processing by a previous run before the
	// first tick.
	m.reclaimOnce(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reclaimOnce(ctx, logger)
		}
	}
}

func (m *Manager) reclaimOnce(ctx context.Context, logger *slog.Logger) {
	if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("reclaim stale events failed; stuck events may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check meeting database access"),
		)
	}

	pruned, err := m.store.PruneDoneEvents(ctx, time.Now().Add(-doneEventRetention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("prune completed events failed", logging.Error(err))
		return
	}
	if pruned > 0 {
		logger.Debug("pruned completed webhook events", logging.Int64("count", pruned))
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to claim next webhook event",
		logging.Error(err),
		logging.String(logging.FieldEventType, "event_claim_failed"),
		logging.String(logging.FieldErrorHint, "check meeting database access"),
	)
	m.waitForEventOrShutdown(ctx)
}

func (m *Manager) waitForEventOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
