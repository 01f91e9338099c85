package logging

import (
	"context"
	"log/slog"

	"github.com/avlowe/minute/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldMeetingID is the standardized structured logging key for meeting identifiers.
	FieldMeetingID = "meeting_id"
	// FieldBotID is the standardized structured logging key for provider bot identifiers.
	FieldBotID = "bot_id"
	// FieldEvent is the standardized structured logging key for webhook event names.
	FieldEvent = "event"
	// FieldLane is the standardized structured logging key for lifecycle lane names.
	FieldLane = "lane"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType classifies log lines for filtering (for example webhook_rejected).
	FieldEventType = "event_type"
	// FieldErrorCode carries a stable machine-readable failure identifier.
	FieldErrorCode = "error_code"
	// FieldErrorHint suggests the next operator action after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.MeetingIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldMeetingID, id))
	}
	if bot, ok := services.BotIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBotID, bot))
	}
	if event, ok := services.EventFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEvent, event))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
