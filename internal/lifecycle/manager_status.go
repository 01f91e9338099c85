package lifecycle

import (
	"context"

	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
)

// StatusSummary represents lightweight lifecycle diagnostics.
type StatusSummary struct {
	Running      bool
	LastError    string
	LastEvent    *store.WebhookEvent
	MeetingStats map[store.Status]int
	EventStats   map[store.EventStatus]int
}

// Status returns the latest lifecycle information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastEvent := m.lastEvent
	m.mu.RUnlock()

	meetingStats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read meeting stats", logging.Error(err))
	}
	eventStats, err := m.store.EventStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read event stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, MeetingStats: meetingStats, EventStats: eventStats}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastEvent != nil {
		copied := *lastEvent
		summary.LastEvent = &copied
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastEvent(evt *store.WebhookEvent) {
	m.mu.Lock()
	if evt != nil {
		copied := *evt
		m.lastEvent = &copied
	} else {
		m.lastEvent = nil
	}
	m.mu.Unlock()
}
