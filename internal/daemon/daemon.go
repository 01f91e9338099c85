package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/notifications"
	"github.com/avlowe/minute/internal/preflight"
	"github.com/avlowe/minute/internal/services/changeagent"
	"github.com/avlowe/minute/internal/services/recall"
	"github.com/avlowe/minute/internal/store"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	manager    *lifecycle.Manager
	provider   *recall.Client
	summarizer *changeagent.Client
	notifier   notifications.Service
	logPath    string
	logStream  *logging.StreamHub
	logArchive *logging.EventArchive

	lockPath string
	lock     *flock.Flock

	apiServer *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Lifecycle    lifecycle.StatusSummary
	DatabasePath string
	LockFilePath string
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies. The provider and
// summarizer clients are built from configuration so every caller shares
// one video-link cache.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, mgr *lifecycle.Manager, logPath string, hub *logging.StreamHub, archive *logging.EventArchive, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, logger, and lifecycle manager")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "minuted.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		manager:    mgr,
		provider:   recall.NewConfiguredClient(cfg),
		summarizer: changeagent.NewConfiguredClient(cfg),
		notifier:   notifier,
		logPath:    logPath,
		logStream:  hub,
		logArchive: archive,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start launches the lifecycle manager and API server and acquires the
// daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another minute daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.manager.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start lifecycle manager: %w", err)
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil && srv != nil {
		err = srv.start(d.ctx)
	}
	if err != nil {
		d.manager.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}
	d.apiServer = srv

	d.running.Store(true)
	d.logger.Info("minute daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if d.apiServer != nil {
		d.apiServer.stop()
		d.apiServer = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("minute daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListMeetings returns meetings filtered by optional statuses.
func (d *Daemon) ListMeetings(ctx context.Context, statuses []store.Status) ([]*store.Meeting, error) {
	if d.store == nil {
		return nil, errors.New("meeting store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// ListMeetingPage returns one page of meetings plus the total row count,
// optionally filtered by owner and statuses.
func (d *Daemon) ListMeetingPage(ctx context.Context, offset, limit int, userID *int64, statuses ...store.Status) ([]*store.Meeting, int, error) {
	if d.store == nil {
		return nil, 0, errors.New("meeting store unavailable")
	}
	return d.store.ListPage(ctx, offset, limit, userID, statuses...)
}

// GetMeeting returns a single meeting, or nil when it does not exist.
func (d *Daemon) GetMeeting(ctx context.Context, id int64) (*store.Meeting, error) {
	if d.store == nil {
		return nil, errors.New("meeting store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// RemoveMeeting deletes a meeting and its dependent rows.
func (d *Daemon) RemoveMeeting(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("meeting store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// RetryEvents resets failed webhook events (optionally a subset) back to
// pending.
func (d *Daemon) RetryEvents(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("meeting store unavailable")
	}
	return d.store.RetryFailedEvents(ctx, ids...)
}

// ListEvents returns queued webhook events in the given state in arrival
// order.
func (d *Daemon) ListEvents(ctx context.Context, status store.EventStatus) ([]*store.WebhookEvent, error) {
	if d.store == nil {
		return nil, errors.New("meeting store unavailable")
	}
	return d.store.ListEventsByStatus(ctx, status)
}

// MeetingHealth returns aggregate meeting and queue diagnostics.
func (d *Daemon) MeetingHealth(ctx context.Context) (store.HealthSummary, error) {
	if d.store == nil {
		return store.HealthSummary{}, errors.New("meeting store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (store.DatabaseHealth, error) {
	if d.store == nil {
		return store.DatabaseHealth{}, errors.New("meeting store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Provider exposes the meeting bot client for lifecycle wiring.
func (d *Daemon) Provider() *recall.Client {
	return d.provider
}

// Summarizer exposes the summarization client for lifecycle wiring.
func (d *Daemon) Summarizer() *changeagent.Client {
	return d.summarizer
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// LogStream returns the in-memory log hub for live tailing.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logStream
}

// LogArchive returns the on-disk log event archive.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.logArchive
}

// Status returns the current daemon status. Readiness checks stay cheap
// here; network probes belong to the CLI preflight path.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.manager.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Lifecycle:    summary,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Checks:       preflight.RuntimeChecks(d.cfg),
	}
}
