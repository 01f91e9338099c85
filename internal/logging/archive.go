package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// EventArchive journals structured log events to disk so API consumers can
// replay history after the in-memory stream rolls over. One JSON document
// per line, sequence numbers ascending.
type EventArchive struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventArchive resets the on-disk journal at path for a fresh daemon run.
// An empty path disables archiving; callers get a nil archive whose methods
// are all safe no-ops.
func NewEventArchive(path string) (*EventArchive, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := resetJournal(trimmed); err != nil {
		return nil, fmt.Errorf("initialize archive %s: %w", trimmed, err)
	}
	return &EventArchive{path: trimmed}, nil
}

// Append journals one event. The archive absorbs write failures so logging
// keeps flowing even when the journal is temporarily unavailable.
func (a *EventArchive) Append(evt LogEvent) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.openForAppend(); err != nil {
		return
	}
	_ = a.enc.Encode(evt)
}

// ReadSince returns events with sequence numbers above since, plus the
// highest sequence present in the journal. Limit caps the result when
// positive.
func (a *EventArchive) ReadSince(since uint64, limit int) ([]LogEvent, uint64, error) {
	if a == nil || strings.TrimSpace(a.path) == "" {
		return nil, since, nil
	}
	file, err := os.Open(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, since, nil
		}
		return nil, since, fmt.Errorf("open archive %s: %w", a.path, err)
	}
	defer file.Close()

	events, highest, err := decodeEventsAfter(file, since, limit)
	if err != nil {
		return events, highest, fmt.Errorf("decode archive %s: %w", a.path, err)
	}
	return events, highest, nil
}

// Close releases the journal file handle. Appends after Close reopen it.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var err error
	if a.file != nil {
		err = a.file.Close()
	}
	a.file = nil
	a.enc = nil
	return err
}

// Path returns the on-disk location backing the archive.
func (a *EventArchive) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

func (a *EventArchive) openForAppend() error {
	if a.enc != nil {
		return nil
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	a.file = file
	a.enc = json.NewEncoder(file)
	return nil
}

func decodeEventsAfter(r io.Reader, since uint64, limit int) ([]LogEvent, uint64, error) {
	capHint := limit
	if capHint <= 0 || capHint > 512 {
		capHint = 512
	}
	events := make([]LogEvent, 0, capHint)
	highest := since

	decoder := json.NewDecoder(r)
	for {
		var evt LogEvent
		if err := decoder.Decode(&evt); err != nil {
			if errors.Is(err, io.EOF) {
				return events, highest, nil
			}
			return events, highest, err
		}
		if evt.Sequence > highest {
			highest = evt.Sequence
		}
		if evt.Sequence <= since {
			continue
		}
		events = append(events, evt)
		if limit > 0 && len(events) >= limit {
			return events, highest, nil
		}
	}
}

func resetJournal(path string) error {
	if err := ensureLogDir(path); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}
