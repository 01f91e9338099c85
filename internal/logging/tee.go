package logging

import (
	"context"
	"log/slog"
)

// multiHandler delivers each record to every sink that accepts its level.
type multiHandler struct {
	sinks []slog.Handler
}

func newMultiHandler(sinks ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	}
	return &multiHandler{sinks: kept}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle fans the record out to every sink whose level admits it. All but
// the final delivery receive a clone so no sink observes another's
// mutations.
func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	pending := 0
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, record.Level) {
			pending++
		}
	}

	var firstErr error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		pending--
		rec := record
		if pending > 0 {
			rec = record.Clone()
		}
		if err := sink.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithAttrs(attrs)
	}
	return &multiHandler{sinks: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithGroup(name)
	}
	return &multiHandler{sinks: next}
}

// TeeLogger duplicates log output from base into the provided handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newMultiHandler(handlers...))
	}
	all := append([]slog.Handler{base.Handler()}, handlers...)
	return slog.New(newMultiHandler(all...))
}

// TeeHandler creates a handler that duplicates log output to multiple handlers.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	return newMultiHandler(handlers...)
}
