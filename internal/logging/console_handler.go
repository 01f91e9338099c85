package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders human-oriented log lines: a header carrying the
// component and meeting subject, then an indented field list. Info-level
// fields that repeat unchanged for the same subject are suppressed so
// steady-state lifecycle chatter does not wallpaper the terminal.
type consoleHandler struct {
	mu          sync.Mutex
	writer      io.Writer
	level       *slog.LevelVar
	attrs       []slog.Attr
	groups      []string
	addSource   bool
	repeatCache map[string]map[string]string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		writer:      w,
		level:       lvl,
		addSource:   addSource,
		repeatCache: make(map[string]map[string]string),
	}
}

// header carries the attrs promoted out of the field list into the line
// header: the logging component plus the lane/meeting/event subject.
type header struct {
	component string
	lane      string
	meetingID string
	event     string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	all := make([]kv, len(kvs))
	copy(all, kvs)

	hdr, fields := promoteHeader(kvs)
	fields = dedupeKeys(fields)
	all = dedupeKeys(all)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(fields)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Level < slog.LevelInfo {
		h.writeDebug(&buf, timestamp, record.Level, hdr, message, recordSource(record), all)
	} else {
		h.writeInfo(&buf, timestamp, record.Level, hdr, message, recordSource(record), fields)
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// recordSource resolves the record's PC to a source location, matching
// slog.Record.Source on toolchains that predate the accessor.
func recordSource(record slog.Record) *slog.Source {
	fs := runtime.CallersFrames([]uintptr{record.PC})
	f, _ := fs.Next()
	if f.File == "" && f.Line == 0 {
		return nil
	}
	return &slog.Source{
		Function: f.Function,
		File:     f.File,
		Line:     f.Line,
	}
}

// promoteHeader pulls the first component/lane/meeting/event values out of
// the attr list. The component leaves the field list entirely; subject
// attrs stay so field output remains self-contained.
func promoteHeader(kvs []kv) (header, []kv) {
	var hdr header
	fields := make([]kv, 0, len(kvs))
	for _, pair := range kvs {
		switch pair.key {
		case FieldComponent:
			if hdr.component == "" {
				hdr.component = plainText(pair.value)
			}
			continue
		case FieldMeetingID:
			if hdr.meetingID == "" {
				hdr.meetingID = plainText(pair.value)
			}
		case FieldEvent:
			if hdr.event == "" {
				hdr.event = plainText(pair.value)
			}
		case FieldLane:
			if hdr.lane == "" {
				hdr.lane = plainText(pair.value)
			}
		}
		fields = append(fields, pair)
	}
	return hdr, fields
}

func (h *consoleHandler) writeInfo(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source, attrs []kv) {
	h.writeHeader(buf, ts, level, hdr, message, src)
	fields, hidden := selectInfoFields(attrs, 0, true)
	fields, hidden = h.suppressRepeats(infoSummaryKey(hdr.component, hdr.meetingID, attrs), fields, hidden, level)
	buf.WriteByte('\n')
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
}

func (h *consoleHandler) writeDebug(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source, attrs []kv) {
	h.writeHeader(buf, ts, level, hdr, message, src)
	buf.WriteByte('\n')
	for _, pair := range attrs {
		if pair.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(pair.key)
		buf.WriteString(": ")
		buf.WriteString(quotedText(pair.value))
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, hdr header, message string, src *slog.Source) {
	buf.WriteString(stampTime(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if hdr.component != "" {
		buf.WriteString(" [")
		buf.WriteString(hdr.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(hdr.lane, hdr.meetingID, hdr.event); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if message != "" {
		buf.WriteString(" - ")
		buf.WriteString(message)
	}
	if h.addSource && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
}

// suppressRepeats drops info fields whose value matches the last line
// emitted for the same subject. Warnings and errors always show their
// fields but still refresh the cache.
func (h *consoleHandler) suppressRepeats(key string, fields []infoField, hidden int, level slog.Level) ([]infoField, int) {
	if key == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache, ok := h.repeatCache[key]
	if !ok {
		cache = make(map[string]string)
		h.repeatCache[key] = cache
	}
	if level > slog.LevelInfo {
		for _, field := range fields {
			cache[field.label] = field.value
		}
		return fields, hidden
	}
	kept := make([]infoField, 0, len(fields))
	for _, field := range fields {
		if prev, seen := cache[field.label]; seen && prev == field.value {
			continue
		}
		cache[field.label] = field.value
		kept = append(kept, field)
	}
	return kept, hidden
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{
		writer:      h.writer,
		level:       h.level,
		addSource:   h.addSource,
		repeatCache: h.repeatCache,
	}
	clone.attrs = append(clone.attrs, h.attrs...)
	clone.groups = append(clone.groups, h.groups...)
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKeys keeps each key's first position but its last value, matching
// slog's override semantics for repeated attrs.
func dedupeKeys(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append(make([]string, 0, len(prefix)+1), prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	*dst = append(*dst, kv{key: qualifyKey(prefix, attr.Key), value: attr.Value})
}

func qualifyKey(prefix []string, key string) string {
	if len(prefix) == 0 {
		return key
	}
	if key == "" {
		return strings.Join(prefix, ".")
	}
	return strings.Join(prefix, ".") + "." + key
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
