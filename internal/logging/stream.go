package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one structured log line published to the streaming hub.
// Sequence numbers are contiguous and ascending for the life of the daemon.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Event         string            `json:"event,omitempty"`
	MeetingID     int64             `json:"meeting_id,omitempty"`
	BotID         string            `json:"bot_id,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogEventSink receives every published event, for persistence or relay.
type LogEventSink interface {
	Append(LogEvent)
}

// StreamHub buffers the most recent log events in memory and wakes waiting
// fetchers when new events arrive. API consumers page through it by
// sequence number; the on-disk archive covers anything that has already
// rolled out of the buffer.
type StreamHub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []LogEvent
	nextSeq  uint64
	sinks    []LogEventSink
}

// NewStreamHub constructs a bounded in-memory log fan-out buffer.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &StreamHub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// AddSink wires an additional sink that receives every published event.
func (h *StreamHub) AddSink(sink LogEventSink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish stamps the event with the next sequence number, appends it to the
// buffer, and fans it out to sinks outside the lock.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	sinks := append([]LogEventSink(nil), h.sinks...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
}

// Fetch returns buffered events with sequence greater than since. When wait
// is true and nothing is ready, Fetch blocks until an event arrives or the
// context ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	// cond.Wait cannot watch a context, so a helper goroutine turns
	// cancellation into a broadcast.
	stopWaker := make(chan struct{})
	defer close(stopWaker)
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-stopWaker:
			}
		}()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.sliceLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	if start == len(h.buffer) {
		return nil, h.nextSeq
	}
	out := make([]LogEvent, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Sequence
}

// sliceLocked exploits contiguous sequence numbers: the buffer always holds
// [nextSeq-len+1, nextSeq], so the start index is arithmetic rather than a
// scan.
func (h *StreamHub) sliceLocked(since uint64, limit int) ([]LogEvent, uint64) {
	if len(h.buffer) == 0 || since >= h.nextSeq {
		return nil, h.nextSeq
	}
	start := 0
	if first := h.buffer[0].Sequence; since >= first {
		start = int(since - first + 1)
	}
	if start >= len(h.buffer) {
		return nil, h.nextSeq
	}
	end := start + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]LogEvent, end-start)
	copy(out, h.buffer[start:end])
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// hubHandler publishes every record to the hub on its way to the wrapped
// handler. WithAttrs attrs are tracked separately because slog applies them
// inside the wrapped handler where the hub cannot see them.
type hubHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

// StreamHandler wraps next so every record is also published to hub.
func StreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &hubHandler{next: next, hub: hub}
}

func (h *hubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *hubHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(buildLogEvent(record, h.attrs))
	return h.next.Handle(ctx, record.Clone())
}

func (h *hubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &hubHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: merged}
}

func (h *hubHandler) WithGroup(name string) slog.Handler {
	return &hubHandler{next: h.next.WithGroup(name), hub: h.hub}
}

// buildLogEvent projects a record onto the stream event shape. Known keys
// become typed fields; call-site attrs overwrite WithAttrs values because
// they are absorbed last.
func buildLogEvent(record slog.Record, preAttrs []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    make(map[string]string),
	}

	for _, attr := range preAttrs {
		event.absorb(attr)
	}

	var attrs []kv
	record.Attrs(func(attr slog.Attr) bool {
		event.absorb(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			attrs = append(attrs, kv{key: key, value: attr.Value})
		}
		return true
	})

	if len(attrs) > 0 {
		if info, _ := selectInfoFields(attrs, infoAttrLimit, false); len(info) > 0 {
			event.Details = make([]DetailField, 0, len(info))
			for _, field := range info {
				event.Details = append(event.Details, DetailField{Label: field.label, Value: field.value})
			}
		}
	}

	return event
}

func (e *LogEvent) absorb(attr slog.Attr) {
	key := strings.TrimSpace(attr.Key)
	if key == "" {
		return
	}
	switch key {
	case FieldMeetingID:
		e.MeetingID = attr.Value.Int64()
	case FieldBotID:
		e.BotID = plainText(attr.Value)
	case FieldEvent:
		e.Event = plainText(attr.Value)
	case FieldLane:
		e.Lane = plainText(attr.Value)
	case FieldCorrelationID:
		e.CorrelationID = plainText(attr.Value)
	case FieldComponent:
		e.Component = plainText(attr.Value)
	default:
		e.Fields[key] = plainText(attr.Value)
	}
}
