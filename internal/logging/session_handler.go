package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID is the standardized structured logging key for daemon run identifiers.
const FieldSessionID = "session_id"

// WithSessionID returns a logger whose records all carry the given session id.
// Blank ids leave the logger untouched.
func WithSessionID(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if sessionID == "" {
		return logger
	}
	return slog.New(newSessionStamp(logger.Handler(), sessionID))
}

// sessionStamp decorates a handler so every record picks up the session_id
// attribute on its way through.
type sessionStamp struct {
	next  slog.Handler
	stamp slog.Attr
}

func newSessionStamp(next slog.Handler, sessionID string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return sessionStamp{next: next, stamp: slog.String(FieldSessionID, sessionID)}
}

func (h sessionStamp) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h sessionStamp) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.stamp)
	return h.next.Handle(ctx, record)
}

func (h sessionStamp) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sessionStamp{next: h.next.WithAttrs(attrs), stamp: h.stamp}
}

func (h sessionStamp) WithGroup(name string) slog.Handler {
	return sessionStamp{next: h.next.WithGroup(name), stamp: h.stamp}
}
