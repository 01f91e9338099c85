package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avlowe/minute/internal/api"
)

// ErrAPIUnavailable marks failures to reach the daemon's HTTP log endpoint.
var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamClient fetches structured log events from the daemon's HTTP API.
type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// StreamQuery selects which slice of the daemon's log stream to fetch.
type StreamQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	MeetingID int64
	BotID     string
}

func (q StreamQuery) values() url.Values {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if strings.TrimSpace(q.Component) != "" {
		values.Set("component", q.Component)
	}
	if q.MeetingID > 0 {
		values.Set("meeting", strconv.FormatInt(q.MeetingID, 10))
	}
	if strings.TrimSpace(q.BotID) != "" {
		values.Set("bot", q.BotID)
	}
	return values
}

// NewStreamClient returns a client for the daemon's log event API, or nil
// when no API bind address is configured.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	base, err := parseBindURL(bind)
	if err != nil || base == nil {
		return nil, err
	}
	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout: follow mode blocks until events arrive or ctx cancels.
		http: &http.Client{},
	}, nil
}

// parseBindURL turns a bind address like "127.0.0.1:7430" into a base URL,
// defaulting the scheme to http and stripping any path components.
func parseBindURL(bind string) (*url.URL, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return base, nil
}

// Fetch performs one GET against /api/logs. In follow mode the server holds
// the request open until events arrive, so cancellation comes from ctx.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrAPIUnavailable
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: q.values().Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, err
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err looks like the daemon API is not
// listening, as opposed to a protocol-level failure.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
