package recall

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

	cache "github.com/patrickmn/go-cache"

	"github.com/avlowe/minute/internal/config"
)

const (
	defaultBaseURL     = "https://us-east-1.recall.ai/api/v1"
	defaultHTTPTimeout = 30 * time.Second

	// Provider download links expire six hours after issue; cached
	// resolutions must stay inside that window.
	videoCacheTTL   = 5 * time.Hour
	videoCacheSweep = 10 * time.Minute
)

// StatusInCallRecording is the provider status code reported while a bot
// is actively recording a call.
const StatusInCallRecording = "in_call_recording"

// Client wraps the Recall.ai bot API.
type Client struct {
	apiKey     string
	baseURL    string
	webhookURL string
	httpClient *http.Client
	videoCache *cache.Cache
}

// Option customizes the Recall client.
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

// WithWebhookURL registers a delivery endpoint on every bot the client
// creates, so the provider pushes status events instead of relying on
// polling alone.
func WithWebhookURL(webhookURL string) Option {
	return func(c *Client) {
		c.webhookURL = strings.TrimSpace(webhookURL)
	}
}

// NewClient constructs a Recall API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		videoCache: cache.New(videoCacheTTL, videoCacheSweep),
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

// NewConfiguredClient builds a client from the Recall section of the config.
func NewConfiguredClient(cfg *config.Config) *Client {
	if cfg == nil {
		return NewClient("")
	}
	opts := []Option{
		WithBaseURL(cfg.Recall.BaseURL),
		WithWebhookURL(cfg.Recall.WebhookURL),
	}
	if cfg.Recall.TimeoutSeconds > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Recall.TimeoutSeconds) * time.Second,
		}))
	}
	return NewClient(cfg.Recall.APIKey, opts...)
}

// Bot identifies a provider bot dispatched to a meeting.
type Bot struct {
	ID         string
	MeetingURL string
}

type createBotRequest struct {
	MeetingURL      string          `json:"meeting_url"`
	WebhookURL      string          `json:"webhook_url,omitempty"`
	RecordingConfig recordingConfig `json:"recording_config"`
}

type recordingConfig struct {
	Transcript transcriptConfig `json:"transcript"`
}

type transcriptConfig struct {
	Provider transcriptProviderConfig `json:"provider"`
}

type transcriptProviderConfig struct {
	RecallAIStreaming struct{} `json:"recallai_streaming"`
}

// CreateBot asks the provider to join a meeting and stream its transcript.
func (c *Client) CreateBot(ctx context.Context, meetingURL string) (*Bot, error) {
	meetingURL = strings.TrimSpace(meetingURL)
	if meetingURL == "" {
		return nil, errors.New("recall create bot: meeting url required")
	}
	if c.apiKey == "" {
		return nil, errors.New("recall create bot: api key required")
	}
	body, err := c.do(ctx, http.MethodPost, "/bot/", createBotRequest{
		MeetingURL: meetingURL,
		WebhookURL: c.webhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("recall create bot: %w", err)
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("recall create bot: decode response: %w", err)
	}
	if parsed.ID == "" {
		return nil, errors.New("recall create bot: response missing bot id")
	}
	return &Bot{ID: parsed.ID, MeetingURL: meetingURL}, nil
}

// RetrieveBot fetches the full bot record, including the status history
// and recording artifact shortcuts.
func (c *Client) RetrieveBot(ctx context.Context, botID string) (*BotRecord, error) {
	botID = strings.TrimSpace(botID)
	if botID == "" {
		return nil, errors.New("recall retrieve bot: bot id required")
	}
	if c.apiKey == "" {
		return nil, errors.New("recall retrieve bot: api key required")
	}
	body, err := c.do(ctx, http.MethodGet, "/bot/"+url.PathEscape(botID)+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("recall retrieve bot: %w", err)
	}
	var record BotRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("recall retrieve bot: decode response: %w", err)
	}
	return &record, nil
}

// IsBotInMeeting reports whether the bot is currently recording a call.
// The answer reflects the provider's status history at call time; nothing
// is retained between calls.
func (c *Client) IsBotInMeeting(ctx context.Context, botID string) (bool, error) {
	record, err := c.RetrieveBot(ctx, botID)
	if err != nil {
		return false, err
	}
	return record.InMeeting(), nil
}

// ResolveVideoURL returns the bot's mixed-video download link. Resolved
// links are cached below the provider's six-hour expiry so repeated views
// do not refetch the record. An empty link means the recording has no
// video artifact.
func (c *Client) ResolveVideoURL(ctx context.Context, botID string) (string, error) {
	if cached, found := c.videoCache.Get(botID); found {
		if link, ok := cached.(string); ok {
			return link, nil
		}
	}
	record, err := c.RetrieveBot(ctx, botID)
	if err != nil {
		return "", err
	}
	link := record.VideoURL()
	if link != "" {
		c.videoCache.Set(botID, link, cache.DefaultExpiration)
	}
	return link, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// download fetches a pre-signed artifact URL. These links carry their own
// credentials, so no Authorization header is attached.
func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
