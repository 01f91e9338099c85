package changeagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avlowe/minute/internal/config"
)

const (
	defaultBaseURL     = "https://api.changeagent.dev"
	defaultHTTPTimeout = 60 * time.Second
)

// Client produces structured meeting summaries. With an API key the
// transcript is sent to the remote summarization service; without one a
// deterministic local digest is produced instead.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the summarization client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a summarization client. An empty API key selects
// the local digest mode.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// NewConfiguredClient builds a client from the ChangeAgent section of the
// config. A disabled section yields a local-digest client.
func NewConfiguredClient(cfg *config.Config) *Client {
	if cfg == nil || !cfg.ChangeAgent.Enabled {
		return NewClient("")
	}
	opts := []Option{WithBaseURL(cfg.ChangeAgent.BaseURL)}
	if cfg.ChangeAgent.TimeoutSeconds > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.ChangeAgent.TimeoutSeconds) * time.Second,
		}))
	}
	return NewClient(cfg.ChangeAgent.APIKey, opts...)
}

// Remote reports whether summaries go through the remote service.
func (c *Client) Remote() bool {
	return c.apiKey != ""
}

type summarizeRequest struct {
	Transcript   string   `json:"transcript"`
	Participants []string `json:"participants"`
}

// Summarize produces a structured summary for the transcript. The
// participant legend is always computed locally from the roster in roster
// order, whichever mode handles the content.
func (c *Client) Summarize(ctx context.Context, speech []Speech, participants []string) (*Summary, error) {
	if len(speech) == 0 {
		return nil, errors.New("changeagent summarize: transcript required")
	}
	legend := Legend(participants)
	if !c.Remote() {
		return localSummary(participants, legend), nil
	}

	encoded, err := json.Marshal(summarizeRequest{
		Transcript:   formatTranscript(speech),
		Participants: participants,
	})
	if err != nil {
		return nil, fmt.Errorf("changeagent summarize: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/summarize")
	if err != nil {
		return nil, fmt.Errorf("changeagent summarize: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("changeagent summarize: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("changeagent summarize: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("changeagent summarize: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("changeagent summarize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("changeagent summarize: decode response: %w", err)
	}
	if len(summary.Content) == 0 {
		return nil, errors.New("changeagent summarize: empty summary content")
	}
	summary.Participants = legend
	return &summary, nil
}
