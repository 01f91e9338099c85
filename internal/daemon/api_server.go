package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/services"
)

// webhookDedupTTL suppresses identical provider redeliveries while the
// first enqueue is still fresh.
const webhookDedupTTL = 30 * time.Second

// maxBodyBytes caps request bodies. Webhook payloads with inline
// transcript fragments stay far below this.
const maxBodyBytes = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	seen   *gocache.Cache

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		seen:   gocache.New(webhookDedupTTL, time.Minute),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(token, secret, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/webhook", srv.handleWebhook)
	mux.HandleFunc("/api/auth/token", srv.handleAuthToken)
	mux.HandleFunc("/api/send-bot", guard(srv.handleSendBot))
	mux.HandleFunc("/api/schedule-bot", guard(srv.handleScheduleBot))
	mux.HandleFunc("/api/schedule-bot/", guard(srv.handleUnscheduleBot))
	mux.HandleFunc("/api/bot-status/", guard(srv.handleBotStatus))
	mux.HandleFunc("/api/meetings", guard(srv.handleMeetings))
	mux.HandleFunc("/api/meetings/", guard(srv.handleMeeting))
	mux.HandleFunc("/api/notes", guard(srv.handleNotes))
	mux.HandleFunc("/api/notes/", guard(srv.handleNote))
	mux.HandleFunc("/api/users", guard(srv.handleUsers))
	mux.HandleFunc("/api/users/", guard(srv.handleUser))
	mux.HandleFunc("/api/calendar-events", guard(srv.handleCalendarEvents))
	mux.HandleFunc("/api/calendar-events/", guard(srv.handleCalendarEvent))
	mux.HandleFunc("/api/status", guard(srv.handleStatus))
	mux.HandleFunc("/api/logs", guard(srv.handleLogs))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	checks := make([]api.ReadinessCheck, 0, len(status.Checks))
	for _, check := range status.Checks {
		checks = append(checks, api.ReadinessCheck{
			Name:   check.Name,
			Ready:  check.Passed,
			Detail: check.Detail,
		})
	}
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Lifecycle:    api.FromLifecycleStatus(status.Lifecycle),
		Checks:       checks,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hub := s.daemon.LogStream()
	archive := s.daemon.LogArchive()
	if hub == nil && archive == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")

	var filterMeeting int64
	if value := strings.TrimSpace(query.Get("meeting")); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			filterMeeting = parsed
		}
	}
	filterBot := strings.TrimSpace(query.Get("bot"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		converted []api.LogEvent
		next      uint64
	)

	if archive != nil && since > 0 {
		firstSeq := uint64(0)
		if hub != nil {
			firstSeq = hub.FirstSequence()
		}
		if hub == nil || (firstSeq > 0 && since < firstSeq) {
			archived, cursor, archErr := archive.ReadSince(since, limit)
			if archErr != nil {
				s.log().Warn("log archive read failed", logging.Error(archErr))
			} else if len(archived) > 0 {
				converted = convertLogEvents(archived)
				next = cursor
			}
		}
	}
	if tail && since == 0 && !follow && hub != nil {
		raw, cursor := hub.Tail(limit)
		converted = convertLogEvents(raw)
		next = cursor
	} else if len(converted) == 0 && hub != nil {
		raw, cursor, fetchErr := hub.Fetch(r.Context(), since, limit, follow)
		if fetchErr != nil && !errors.Is(fetchErr, context.Canceled) && !errors.Is(fetchErr, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, fetchErr.Error())
			return
		}
		converted = convertLogEvents(raw)
		next = cursor
	}

	filtered := make([]api.LogEvent, 0, len(converted))
	for _, evt := range converted {
		if filterMeeting != 0 && evt.MeetingID != filterMeeting {
			continue
		}
		if filterBot != "" && evt.BotID != filterBot {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}

	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: filtered,
		Next:   next,
	})
}

func convertLogEvents(events []logging.LogEvent) []api.LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		details := make([]api.DetailField, 0, len(evt.Details))
		for _, detail := range evt.Details {
			details = append(details, api.DetailField{
				Label: detail.Label,
				Value: detail.Value,
			})
		}
		out = append(out, api.LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     evt.Timestamp,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Event:         evt.Event,
			MeetingID:     evt.MeetingID,
			BotID:         evt.BotID,
			Lane:          evt.Lane,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
			Details:       details,
		})
	}
	return out
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// decodeBody reads and unmarshals a JSON request body, answering 400 on
// malformed input.
func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps sentinel-tagged failures onto HTTP statuses:
// validation 400, not-found 404, conflict 409, external service or
// timeout 502, anything else 500.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExternalService), errors.Is(err, services.ErrTimeout):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
