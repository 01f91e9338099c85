// Package logstream feeds the CLI's log view, preferring the daemon's
// structured event API and degrading to raw file tailing over IPC when the
// API server is down.
package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/logs"
)

// ErrFiltersRequireAPI is returned when component or meeting filters are
// requested but only the raw-line fallback is reachable.
var ErrFiltersRequireAPI = errors.New("log filters require API access")

// TailClient captures the IPC log tail contract used for fallback streaming.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Filters narrows the structured stream to one component, meeting, or bot.
type Filters struct {
	Component string
	MeetingID int64
	BotID     string
}

func (f Filters) empty() bool {
	return strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.BotID) == "" &&
		f.MeetingID == 0
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// Stream emits log output through onEvent when the structured API answers,
// or onLine when falling back to raw tailing. It reports whether anything
// was emitted. Filters only work against the API; with the API down they
// fail rather than silently ignoring the filter.
func Stream(
	ctx context.Context,
	apiClient *logs.StreamClient,
	fallback TailClient,
	opts Options,
	onEvent func(api.LogEvent),
	onLine func(string),
) (bool, error) {
	printed, err := fromAPI(ctx, apiClient, opts, onEvent)
	if err == nil {
		return printed, nil
	}
	if !logs.IsAPIUnavailable(err) {
		return printed, err
	}
	if !opts.Filters.empty() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireAPI, logs.ErrAPIUnavailable)
	}
	if fallback == nil {
		return false, logs.ErrAPIUnavailable
	}
	return fromSocket(ctx, fallback, opts, onLine)
}

// fromAPI pages structured events. The first fetch tails the most recent
// lines; follow mode then long-polls from the returned cursor.
func fromAPI(
	ctx context.Context,
	client *logs.StreamClient,
	opts Options,
	onEvent func(api.LogEvent),
) (bool, error) {
	query := logs.StreamQuery{
		Limit:     opts.Lines,
		Tail:      true,
		Component: opts.Filters.Component,
		MeetingID: opts.Filters.MeetingID,
		BotID:     opts.Filters.BotID,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query = logs.StreamQuery{
			Since:     resp.Next,
			Limit:     200,
			Follow:    true,
			Component: query.Component,
			MeetingID: query.MeetingID,
			BotID:     query.BotID,
		}
	}
}

// fromSocket tails the raw log file through the daemon socket. The first
// request reads the last opts.Lines lines; follow mode keeps polling from
// the returned offset with a one-second wait per round trip.
func fromSocket(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	req := ipc.LogTailRequest{
		Offset:     -1,
		Limit:      opts.Lines,
		Follow:     opts.Follow,
		WaitMillis: 1000,
	}
	if req.Limit <= 0 {
		req.Limit = 0
		req.Offset = 0
	}

	printed := false
	for {
		resp, err := client.LogTail(req)
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		req.Offset = resp.Offset
		req.Limit = 0
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
