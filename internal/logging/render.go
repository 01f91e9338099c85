package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

func stampTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// rawText renders a resolved slog value as text and reports whether the
// result may need quoting when embedded in key=value output.
func rawText(v slog.Value) (string, bool) {
	switch v.Kind() {
	case slog.KindString:
		return v.String(), true
	case slog.KindBool:
		return strconv.FormatBool(v.Bool()), false
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10), false
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10), false
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64), false
	case slog.KindDuration:
		return v.Duration().String(), false
	case slog.KindTime:
		return stampTime(v.Time()), false
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error(), true
		}
		return fmt.Sprint(v.Any()), true
	default:
		return v.String(), true
	}
}

// quotedText renders a value for key=value console fields, quoting strings
// that contain spaces, equals signs, or quotes.
func quotedText(v slog.Value) string {
	text, quotable := rawText(v.Resolve())
	if quotable && needsQuoting(text) {
		return strconv.Quote(text)
	}
	return text
}

// plainText renders a value for prose positions (subjects, stream events)
// where surrounding quotes would read as noise. Strings and errors pass
// through untouched; other kinds fall back to the quoted form.
func plainText(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return quotedText(v)
	}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
