package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avlowe/minute/internal/config"
)

const userAgent = "Minute-Go/0.1.0"

// Service defines the notification surface exposed to lifecycle components.
type Service interface {
	NotifyMeetingStarted(ctx context.Context, title string) error
	NotifyMeetingCompleted(ctx context.Context, title, duration string) error
	NotifySummaryReady(ctx context.Context, title string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:          topic,
		client:            client,
		meetingStarted:    cfg.Notifications.MeetingStarted,
		meetingCompleted:  cfg.Notifications.MeetingCompleted,
		summaryReady:      cfg.Notifications.SummaryReady,
		errors:            cfg.Notifications.Errors,
		minMeetingSeconds: cfg.Notifications.MinMeetingSeconds,
		dedupWindow:       time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:          make(map[string]time.Time),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint          string
	client            *http.Client
	meetingStarted    bool
	meetingCompleted  bool
	summaryReady      bool
	errors            bool
	minMeetingSeconds int
	dedupWindow       time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) NotifyMeetingStarted(ctx context.Context, title string) error {
	if !n.meetingStarted {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Minute - Meeting Started",
		message: fmt.Sprintf("🎙️ Bot joined: %s", title),
		tags:    []string{"minute", "meeting", "started"},
	}
	if n.suppressDuplicate(data) {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMeetingCompleted(ctx context.Context, title, duration string) error {
	if !n.meetingCompleted {
		return nil
	}
	title = strings.TrimSpace(title)
	duration = strings.TrimSpace(duration)
	if seconds, ok := durationSeconds(duration); ok && seconds < n.minMeetingSeconds {
		return nil
	}

	message := fmt.Sprintf("✅ Meeting complete: %s", title)
	if duration != "" {
		message = fmt.Sprintf("%s (%s)", message, duration)
	}
	data := payload{
		title:   "Minute - Meeting Complete",
		message: message,
		tags:    []string{"minute", "meeting", "completed"},
	}
	if n.suppressDuplicate(data) {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySummaryReady(ctx context.Context, title string) error {
	if !n.summaryReady {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Minute - Summary Ready",
		message:  fmt.Sprintf("📝 Summary ready: %s", title),
		tags:     []string{"minute", "summary", "ready"},
		priority: "high",
	}
	if n.suppressDuplicate(data) {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Minute - Error",
		message:  builder.String(),
		tags:     []string{"minute", "error", "alert"},
		priority: "high",
	}
	if n.suppressDuplicate(data) {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Minute - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"minute", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// suppressDuplicate reports whether an identical notification was already
// delivered inside the dedup window. A suppressed payload does not reset the
// window; repeated failures collapse into one push per window.
func (n *ntfyService) suppressDuplicate(data payload) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := data.title + "\x00" + data.message
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	for k, ts := range n.lastSent {
		if now.Sub(ts) >= n.dedupWindow {
			delete(n.lastSent, k)
		}
	}
	n.lastSent[key] = now
	return false
}

// durationSeconds parses the "N min" duration strings recorded on completed
// meetings. Unparseable or empty durations report false so the notification
// is delivered rather than silently dropped.
func durationSeconds(duration string) (int, bool) {
	fields := strings.Fields(duration)
	if len(fields) != 2 || fields[1] != "min" {
		return 0, false
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil || minutes < 0 {
		return 0, false
	}
	return minutes * 60, true
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMeetingStarted(context.Context, string) error           { return nil }
func (noopService) NotifyMeetingCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifySummaryReady(context.Context, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
