package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/avlowe/minute/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Minute", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Minute:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Minute", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Meetings", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Meetings ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("unexpected rule: %q", lines[1])
	}
}

func TestReadinessLines(t *testing.T) {
	checks := []ipc.ReadinessCheck{
		{Name: "database", Ready: true},
		{Name: "recall", Ready: false, Detail: "api key missing"},
	}
	lines := readinessLines(checks, false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready") {
		t.Fatalf("expected ready default detail, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] api key missing") {
		t.Fatalf("expected warn detail, got %q", lines[1])
	}

	empty := readinessLines(nil, false)
	if len(empty) != 1 || !strings.Contains(empty[0], "No readiness checks available") {
		t.Fatalf("unexpected empty output: %v", empty)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
