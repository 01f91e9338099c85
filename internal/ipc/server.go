package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/daemon"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/logs"
	"github.com/avlowe/minute/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Minute", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun minute stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.PID = status.PID
	resp.MeetingStats = api.MergeMeetingStats(status.Lifecycle.MeetingStats)
	resp.EventStats = api.MergeEventStats(status.Lifecycle.EventStats)
	resp.LastError = status.Lifecycle.LastError
	if status.Lifecycle.LastEvent != nil {
		resp.LastEvent = api.FromWebhookEvent(status.Lifecycle.LastEvent)
	}
	if len(status.Checks) > 0 {
		resp.Checks = make([]ReadinessCheck, 0, len(status.Checks))
		for _, check := range status.Checks {
			resp.Checks = append(resp.Checks, ReadinessCheck{
				Name:   check.Name,
				Ready:  check.Passed,
				Detail: check.Detail,
			})
		}
	}
	return nil
}

func (s *service) MeetingsList(req MeetingsListRequest, resp *MeetingsListResponse) error {
	statuses := make([]store.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := store.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	meetings, err := s.daemon.ListMeetings(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Meetings = api.FromMeetings(meetings)
	return nil
}

func (s *service) MeetingDescribe(req MeetingDescribeRequest, resp *MeetingDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid meeting id %d", req.ID)
	}
	meeting, err := s.daemon.GetMeeting(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if meeting == nil {
		return fmt.Errorf("meeting %d not found", req.ID)
	}
	resp.Meeting = api.FromMeeting(meeting)
	return nil
}

func (s *service) MeetingRemove(req MeetingRemoveRequest, resp *MeetingRemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("meeting remove requires at least one id")
	}
	s.log().Debug("meeting remove requested", logging.Int("meeting_count", len(req.IDs)))
	var removed int64
	for _, id := range req.IDs {
		ok, err := s.daemon.RemoveMeeting(s.ctx, id)
		if err != nil {
			return err
		}
		if ok {
			removed++
		}
	}
	resp.Removed = removed
	s.log().Info("meetings removed",
		logging.String(logging.FieldEventType, "meeting_remove"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) EventsList(req EventsListRequest, resp *EventsListResponse) error {
	status, ok := store.ParseEventStatus(req.Status)
	if !ok {
		return fmt.Errorf("unknown event status %q", req.Status)
	}
	events, err := s.daemon.ListEvents(s.ctx, status)
	if err != nil {
		return err
	}
	resp.Events = api.FromWebhookEvents(events)
	return nil
}

func (s *service) EventsRetry(req EventsRetryRequest, resp *EventsRetryResponse) error {
	s.log().Debug("event retry requested", logging.Int("event_count", len(req.IDs)))
	updated, err := s.daemon.RetryEvents(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("webhook events retried",
		logging.String(logging.FieldEventType, "events_retry"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) MeetingHealth(_ MeetingHealthRequest, resp *MeetingHealthResponse) error {
	health, err := s.daemon.MeetingHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Scheduled = health.Scheduled
	resp.InProgress = health.InProgress
	resp.Processing = health.Processing
	resp.Done = health.Done
	resp.Errored = health.Errored
	resp.PendingEvents = health.PendingEvents
	resp.FailedEvents = health.FailedEvents
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalMeetings = health.TotalMeetings
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
