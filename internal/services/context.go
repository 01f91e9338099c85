package services

import "context"

type contextKey string

const (
	meetingIDKey contextKey = "meeting_id"
	botIDKey     contextKey = "bot_id"
	eventKey     contextKey = "event"
	requestIDKey contextKey = "request_id"
)

// WithMeetingID annotates context with the meeting identifier.
func WithMeetingID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, meetingIDKey, id)
}

// MeetingIDFromContext extracts the meeting identifier if present.
func MeetingIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(meetingIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithBotID annotates context with the provider bot identifier.
func WithBotID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, botIDKey, id)
}

// BotIDFromContext returns the bot identifier if present.
func BotIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(botIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEvent annotates context with the webhook event name being processed.
func WithEvent(ctx context.Context, event string) context.Context {
	if event == "" {
		return ctx
	}
	return context.WithValue(ctx, eventKey, event)
}

// EventFromContext returns the event name if present.
func EventFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(eventKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
