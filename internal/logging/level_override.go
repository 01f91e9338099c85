package logging

import (
	"context"
	"log/slog"
)

// minLevelHandler raises the effective level floor for one logger without
// touching the shared handler chain, which stays configured at the most
// verbose level any component needs.
type minLevelHandler struct {
	next  slog.Handler
	floor slog.Level
}

func (h *minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.next.Enabled(ctx, level)
}

func (h *minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &minLevelHandler{next: h.next.WithAttrs(attrs), floor: h.floor}
}

func (h *minLevelHandler) WithGroup(name string) slog.Handler {
	return &minLevelHandler{next: h.next.WithGroup(name), floor: h.floor}
}

// WithLevelOverride returns a logger enforcing the provided minimum level
// while preserving existing attributes and handler wiring. Overriding an
// already-overridden logger replaces the floor instead of stacking wrappers.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(NoopHandler{})
	}
	if prior, ok := logger.Handler().(*minLevelHandler); ok {
		return slog.New(&minLevelHandler{next: prior.next, floor: level})
	}
	return slog.New(&minLevelHandler{next: logger.Handler(), floor: level})
}
