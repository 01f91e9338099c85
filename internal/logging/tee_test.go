package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewMultiHandlerCollapses(t *testing.T) {
	if _, ok := newMultiHandler(nil, nil).(NoopHandler); !ok {
		t.Error("expected noop handler when every sink is nil")
	}

	var buf bytes.Buffer
	only := slog.NewJSONHandler(&buf, nil)
	if got := newMultiHandler(nil, only, nil); got != only {
		t.Error("expected lone sink returned unwrapped")
	}
}

func TestMultiHandlerEnabledAnySink(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newMultiHandler(info, debug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug sink accepts debug, tee should too")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected tee enabled at info")
	}

	strict := newMultiHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if strict.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("no sink accepts debug, tee must not claim it")
	}
}

func TestMultiHandlerDeliversToAllSinks(t *testing.T) {
	var first, second bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&first, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	slog.New(h).Info("meeting claimed")

	if first.Len() == 0 || second.Len() == 0 {
		t.Errorf("expected both sinks written, got %d and %d bytes", first.Len(), second.Len())
	}
}

func TestMultiHandlerSkipsFilteredSinks(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	slog.New(h).Info("bot dispatched")

	if infoBuf.Len() == 0 {
		t.Error("info sink should receive info records")
	}
	if warnBuf.Len() != 0 {
		t.Error("warn sink must not receive info records")
	}
}

func TestMultiHandlerDebugStaysOutOfInfoSink(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	slog.New(h).Debug("claim heartbeat")

	if infoBuf.Len() != 0 {
		t.Error("info sink must not receive debug records")
	}
	if debugBuf.Len() == 0 {
		t.Error("debug sink should receive debug records")
	}
}

func TestMultiHandlerWithAttrsAndGroup(t *testing.T) {
	var first, second bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("bot_id", "bot-1")}).WithGroup("claim"))
	logger.Info("event", slog.String("name", "bot.done"))

	for _, buf := range []*bytes.Buffer{&first, &second} {
		if !bytes.Contains(buf.Bytes(), []byte(`"bot_id"`)) {
			t.Error("expected bot_id attr in every sink")
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"claim"`)) {
			t.Error("expected claim group in every sink")
		}
	}
}

func TestMultiHandlerEverySinkSeesAttrs(t *testing.T) {
	// All but the final delivery receive clones; both sinks must still
	// observe identical record contents.
	var first, second bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)

	slog.New(h).Info("summary stored", slog.String("meeting", "standup"))

	if !bytes.Contains(first.Bytes(), []byte(`"meeting"`)) {
		t.Error("expected meeting attr in first sink")
	}
	if !bytes.Contains(second.Bytes(), []byte(`"meeting"`)) {
		t.Error("expected meeting attr in second sink")
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("teed record")

	if baseBuf.Len() == 0 {
		t.Error("expected output in base buffer")
	}
	if teeBuf.Len() == 0 {
		t.Error("expected output in tee buffer")
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var teeBuf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("no base configured")

	if teeBuf.Len() == 0 {
		t.Error("expected output in tee buffer")
	}
}

func TestTeeHandler(t *testing.T) {
	var first, second bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)

	slog.New(h).Info("dual write")

	if first.Len() == 0 || second.Len() == 0 {
		t.Error("expected both handlers written")
	}
}
