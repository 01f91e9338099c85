package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/notifications"
	"github.com/avlowe/minute/internal/services/recall"
	"github.com/avlowe/minute/internal/store"
)

// Completed events older than this are pruned by the reclaimer lane.
const doneEventRetention = 7 * 24 * time.Hour

// EventProcessor applies a claimed webhook event to its meeting.
type EventProcessor interface {
	HandleEvent(ctx context.Context, evt *store.WebhookEvent) error
}

// BotDispatcher creates provider bots for scheduled meetings.
type BotDispatcher interface {
	CreateBot(ctx context.Context, meetingURL string) (*recall.Bot, error)
}

// Manager coordinates webhook event processing and scheduled bot dispatch.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	processor  EventProcessor
	dispatcher BotDispatcher

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastEvent *store.WebhookEvent
}

// NewManager constructs a lifecycle manager with the default ntfy notifier.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, st, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a lifecycle manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// Configure registers the event processor and the bot dispatcher the manager
// orchestrates. A nil dispatcher disables the scheduler lane.
func (m *Manager) Configure(processor EventProcessor, dispatcher BotDispatcher) {
	m.mu.Lock()
	m.processor = processor
	m.dispatcher = dispatcher
	m.mu.Unlock()
}

func (m *Manager) maxAttempts() int {
	attempts := m.cfg.Workflow.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return attempts
}

func (m *Manager) workerCount() int {
	workers := m.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	return workers
}

// laneLogger derives a component logger for a manager lane, honoring
// per-component level overrides from configuration.
func (m *Manager) laneLogger(name string) *slog.Logger {
	logger := logging.NewComponentLogger(m.logger, name)
	if override := componentOverrideLevel(m.cfg.Logging.ComponentOverrides, name); override != "" {
		logger = logging.WithLevelOverride(logger, parseOverrideLevel(override))
	}
	return logger
}

func componentOverrideLevel(overrides map[string]string, component string) string {
	if len(overrides) == 0 {
		return ""
	}
	component = strings.ToLower(strings.TrimSpace(component))
	if component == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == component {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseOverrideLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
