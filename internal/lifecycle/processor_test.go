package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/services"
	"github.com/avlowe/minute/internal/services/changeagent"
	"github.com/avlowe/minute/internal/services/recall"
	"github.com/avlowe/minute/internal/store"
	"github.com/avlowe/minute/internal/testsupport"
)

type completedPush struct {
	title    string
	duration string
}

// recordingNotifier captures pushes instead of delivering them.
type recordingNotifier struct {
	mu        sync.Mutex
	started   []string
	completed []completedPush
	summaries []string
	failures  []string
}

func (n *recordingNotifier) NotifyMeetingStarted(_ context.Context, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, title)
	return nil
}

func (n *recordingNotifier) NotifyMeetingCompleted(_ context.Context, title, duration string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, completedPush{title: title, duration: duration})
	return nil
}

func (n *recordingNotifier) NotifySummaryReady(_ context.Context, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, title)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, label string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, fmt.Sprintf("%s: %v", label, err))
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) snapshotStarted() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.started...)
}

func (n *recordingNotifier) snapshotCompleted() []completedPush {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]completedPush(nil), n.completed...)
}

func (n *recordingNotifier) snapshotSummaries() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.summaries...)
}

func (n *recordingNotifier) snapshotFailures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failures...)
}

func enqueueEvent(t *testing.T, st *store.Store, meeting *store.Meeting, event, payload string) *store.WebhookEvent {
	t.Helper()
	evt, err := st.EnqueueEvent(context.Background(), meeting.BotID, meeting.ID, event, payload)
	if err != nil {
		t.Fatalf("EnqueueEvent: %v", err)
	}
	return evt
}

func mustGetMeeting(t *testing.T, st *store.Store, id int64) *store.Meeting {
	t.Helper()
	meeting, err := st.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if meeting == nil {
		t.Fatalf("meeting %d not found", id)
	}
	return meeting
}

// newStrictServer fails the test on any request. Handlers that must never
// reach the provider get pointed here.
func newStrictServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider request %s %s", r.Method, r.URL.Path)
		http.Error(w, "unexpected request", http.StatusTeapot)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProcessor(st *store.Store, providerURL string, summarizer lifecycle.Summarizer, notifier *recordingNotifier) *lifecycle.Processor {
	provider := recall.NewClient("test-key", recall.WithBaseURL(providerURL))
	return lifecycle.NewProcessor(st, provider, summarizer, notifier, logging.NewNop())
}

func TestHandleDoneExtractsAndSummarizes(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Pending Sync", "bot-42")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/bot/bot-42/", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Token test-key" {
			t.Errorf("bot fetch sent authorization %q", auth)
		}
		fmt.Fprintf(w, `{
			"id": "bot-42",
			"status_changes": [{"code": "done", "created_at": "2026-03-02T11:00:00Z"}],
			"meeting_metadata": {"title": "Weekly Sync"},
			"recordings": [{
				"started_at": "2026-03-02T10:00:00Z",
				"completed_at": "2026-03-02T10:45:10Z",
				"media_shortcuts": {
					"transcript": {"data": {"download_url": %q}},
					"participant_events": {"data": {"participants_download_url": %q}},
					"video_mixed": {"data": {"download_url": "https://cdn.example.com/video.mp4"}}
				}
			}]
		}`, server.URL+"/artifacts/transcript", server.URL+"/artifacts/participants")
	})
	mux.HandleFunc("/artifacts/transcript", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("pre-signed download sent authorization %q", auth)
		}
		fmt.Fprint(w, `[
			{"participant": {"id": 7, "name": "Ada Lovelace"}, "words": [
				{"text": "Shall", "start_timestamp": {"relative": 1.0}, "end_timestamp": {"relative": 1.4}},
				{"text": "we", "start_timestamp": {"relative": 1.5}, "end_timestamp": {"relative": 1.8}},
				{"text": "begin", "start_timestamp": {"relative": 1.9}, "end_timestamp": {"relative": 2.4}}
			]},
			{"participant": {"id": 9, "name": "Grace Hopper"}, "words": [
				{"text": "Ready", "start_timestamp": {"relative": 3.0}, "end_timestamp": {"relative": 3.5}}
			]}
		]`)
	})
	mux.HandleFunc("/artifacts/participants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "Ada Lovelace"}, {"name": "Grace Hopper"}]`)
	})

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), notifier)

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-42"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusDone {
		t.Fatalf("expected status done, got %s", updated.Status)
	}
	if updated.Title != "Weekly Sync" {
		t.Fatalf("expected provider title, got %q", updated.Title)
	}
	if updated.Duration != "45 min" {
		t.Fatalf("expected duration 45 min, got %q", updated.Duration)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", updated.ErrorMessage)
	}

	var segments []recall.TranscriptSegment
	if err := json.Unmarshal([]byte(updated.TranscriptJSON), &segments); err != nil {
		t.Fatalf("decode stored transcript: %v", err)
	}
	if len(segments) != 2 || segments[0].Words != "Shall we begin" || segments[0].Name != "Ada Lovelace" {
		t.Fatalf("unexpected transcript segments: %+v", segments)
	}

	var participants []string
	if err := json.Unmarshal([]byte(updated.ParticipantsJSON), &participants); err != nil {
		t.Fatalf("decode stored participants: %v", err)
	}
	if len(participants) != 2 || participants[1] != "Grace Hopper" {
		t.Fatalf("unexpected participants: %v", participants)
	}

	var summary changeagent.Summary
	if err := json.Unmarshal([]byte(updated.SummaryJSON), &summary); err != nil {
		t.Fatalf("decode stored summary: %v", err)
	}
	if len(summary.Content) == 0 || len(summary.Participants) != 2 {
		t.Fatalf("unexpected summary shape: %+v", summary)
	}

	completed := notifier.snapshotCompleted()
	if len(completed) != 1 || completed[0].title != "Weekly Sync" || completed[0].duration != "45 min" {
		t.Fatalf("unexpected completion notifications: %+v", completed)
	}
	if summaries := notifier.snapshotSummaries(); len(summaries) != 1 {
		t.Fatalf("expected one summary notification, got %v", summaries)
	}
}

func TestHandleDoneFallsBackToWebhookMetadata(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), notifier)

	withMetadata := testsupport.NewMeeting(t, st, "Placeholder", "bot-77")
	evt := enqueueEvent(t, st, withMetadata, "bot.done", `{
		"event": "bot.done",
		"data": {
			"bot": {"id": "bot-77"},
			"meeting_metadata": {"title": "Budget Review", "participants": ["Ada Lovelace"]}
		}
	}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, withMetadata.ID)
	if updated.Status != store.StatusDone {
		t.Fatalf("expected degraded done, got %s", updated.Status)
	}
	if updated.Title != "Budget Review" {
		t.Fatalf("expected metadata title, got %q", updated.Title)
	}
	if !strings.Contains(updated.ErrorMessage, "bot data fetch failed") {
		t.Fatalf("expected fetch failure recorded, got %q", updated.ErrorMessage)
	}
	var participants []string
	if err := json.Unmarshal([]byte(updated.ParticipantsJSON), &participants); err != nil {
		t.Fatalf("decode stored participants: %v", err)
	}
	if len(participants) != 1 || participants[0] != "Ada Lovelace" {
		t.Fatalf("unexpected participants: %v", participants)
	}

	// Without metadata in the payload the stored title is left alone.
	bare := testsupport.NewMeeting(t, st, "Standing Check-in", "bot-78")
	evt = enqueueEvent(t, st, bare, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-78"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	updated = mustGetMeeting(t, st, bare.ID)
	if updated.Status != store.StatusDone {
		t.Fatalf("expected degraded done, got %s", updated.Status)
	}
	if updated.Title != "Standing Check-in" {
		t.Fatalf("expected original title kept, got %q", updated.Title)
	}
	if !strings.Contains(updated.ErrorMessage, "bot data fetch failed") {
		t.Fatalf("expected fetch failure recorded, got %q", updated.ErrorMessage)
	}

	if completed := notifier.snapshotCompleted(); len(completed) != 2 {
		t.Fatalf("expected two completion notifications, got %+v", completed)
	}
}

func TestHandleDoneWithoutTranscriptCompletesQuietly(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Placeholder", "bot-9")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/bot/bot-9/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "bot-9",
			"status_changes": [{"code": "done", "created_at": "2026-03-02T11:00:00Z"}],
			"meeting_metadata": {"title": "Silent Standup"},
			"recordings": [{
				"started_at": "2026-03-02T10:00:00Z",
				"completed_at": "2026-03-02T10:12:00Z",
				"media_shortcuts": {}
			}]
		}`)
	})

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), notifier)

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-9"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusDone {
		t.Fatalf("expected status done, got %s", updated.Status)
	}
	if updated.Title != "Silent Standup" || updated.Duration != "12 min" {
		t.Fatalf("unexpected title/duration: %q %q", updated.Title, updated.Duration)
	}
	if updated.TranscriptJSON != "" || updated.SummaryJSON != "" {
		t.Fatalf("expected no artifacts, got transcript %q summary %q", updated.TranscriptJSON, updated.SummaryJSON)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", updated.ErrorMessage)
	}
	if summaries := notifier.snapshotSummaries(); len(summaries) != 0 {
		t.Fatalf("expected no summary notification, got %v", summaries)
	}
	if completed := notifier.snapshotCompleted(); len(completed) != 1 {
		t.Fatalf("expected one completion notification, got %+v", completed)
	}
}

func TestHandleDoneSummarizerFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Placeholder", "bot-5")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/bot/bot-5/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "bot-5",
			"status_changes": [{"code": "done", "created_at": "2026-03-02T11:00:00Z"}],
			"meeting_metadata": {"title": "Design Review"},
			"recordings": [{
				"started_at": "2026-03-02T10:00:00Z",
				"completed_at": "2026-03-02T10:30:00Z",
				"media_shortcuts": {"transcript": {"data": {"download_url": %q}}}
			}]
		}`, server.URL+"/artifacts/transcript")
	})
	mux.HandleFunc("/artifacts/transcript", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"participant": {"id": 1, "name": "Ada Lovelace"}, "words": [
			{"text": "Thoughts", "start_timestamp": {"relative": 0.5}, "end_timestamp": {"relative": 1.0}}
		]}]`)
	})

	offline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	t.Cleanup(offline.Close)
	summarizer := changeagent.NewClient("remote-key", changeagent.WithBaseURL(offline.URL))

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, summarizer, notifier)

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-5"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusDone {
		t.Fatalf("expected status done, got %s", updated.Status)
	}
	if updated.TranscriptJSON == "" {
		t.Fatal("expected transcript persisted despite summary failure")
	}
	if updated.SummaryJSON != "" {
		t.Fatalf("expected no summary, got %q", updated.SummaryJSON)
	}
	if !strings.HasPrefix(updated.ErrorMessage, "summarization failed:") {
		t.Fatalf("expected summarization failure recorded, got %q", updated.ErrorMessage)
	}
	if summaries := notifier.snapshotSummaries(); len(summaries) != 0 {
		t.Fatalf("expected no summary notification, got %v", summaries)
	}
	if completed := notifier.snapshotCompleted(); len(completed) != 1 {
		t.Fatalf("expected one completion notification, got %+v", completed)
	}
}

func TestHandleDoneTranscriptFetchFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Placeholder", "bot-11")

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/bot/bot-11/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "bot-11",
			"status_changes": [{"code": "done", "created_at": "2026-03-02T11:00:00Z"}],
			"recordings": [{
				"started_at": "2026-03-02T10:00:00Z",
				"completed_at": "2026-03-02T10:30:00Z",
				"media_shortcuts": {"transcript": {"data": {"download_url": %q}}}
			}]
		}`, server.URL+"/artifacts/transcript")
	})
	mux.HandleFunc("/artifacts/transcript", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
	})

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), notifier)

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-11"}}}`)
	err := proc.HandleEvent(ctx, evt)
	if err == nil {
		t.Fatal("expected transcript download failure to surface")
	}
	if services.FailureStatus(err) != store.EventStatusPending {
		t.Fatalf("expected retryable failure, got %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusProcessing {
		t.Fatalf("expected meeting held in processing for retry, got %s", updated.Status)
	}
	if completed := notifier.snapshotCompleted(); len(completed) != 0 {
		t.Fatalf("expected no completion notification, got %+v", completed)
	}
}

func TestHandleDoneOnTerminalMeetingIsNoOp(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Wrapped Up", "bot-3")

	for _, step := range []struct{ from, to store.Status }{
		{store.StatusInProgress, store.StatusProcessing},
		{store.StatusProcessing, store.StatusDone},
	} {
		moved, err := st.TransitionStatus(ctx, meeting.ID, step.from, step.to)
		if err != nil || !moved {
			t.Fatalf("TransitionStatus(%s -> %s): moved=%v err=%v", step.from, step.to, moved, err)
		}
	}

	server := newStrictServer(t)
	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), notifier)

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-3"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusDone || updated.Title != "Wrapped Up" {
		t.Fatalf("terminal meeting was touched: %+v", updated)
	}
	if completed := notifier.snapshotCompleted(); len(completed) != 0 {
		t.Fatalf("expected no notifications for replayed event, got %+v", completed)
	}
}

func TestHandleEventForDeletedMeetingIsPermanent(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Ephemeral", "bot-8")

	evt := enqueueEvent(t, st, meeting, "bot.done", `{"event": "bot.done", "data": {"bot": {"id": "bot-8"}}}`)
	if removed, err := st.Remove(ctx, meeting.ID); err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}

	proc := newTestProcessor(st, newStrictServer(t).URL, changeagent.NewClient(""), &recordingNotifier{})
	err := proc.HandleEvent(ctx, evt)
	if err == nil {
		t.Fatal("expected error for deleted meeting")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if services.FailureStatus(err) != store.EventStatusFailed {
		t.Fatalf("expected permanent failure, got %v", err)
	}
}

func TestHandleErrorMarksMeetingErrored(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Doomed Call", "bot-55")

	notifier := &recordingNotifier{}
	proc := newTestProcessor(st, newStrictServer(t).URL, changeagent.NewClient(""), notifier)

	evt := enqueueEvent(t, st, meeting, "bot.error", `{"event": "bot.error", "data": {"bot": {"id": "bot-55"}}}`)
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusErrored {
		t.Fatalf("expected status errored, got %s", updated.Status)
	}
	if updated.ErrorMessage != "bot reported a fatal error" {
		t.Fatalf("unexpected error message %q", updated.ErrorMessage)
	}
	failures := notifier.snapshotFailures()
	if len(failures) != 1 || !strings.Contains(failures[0], fmt.Sprintf("meeting #%d", meeting.ID)) {
		t.Fatalf("unexpected error notifications: %v", failures)
	}

	// Replaying the event against the now-terminal meeting changes nothing.
	if err := proc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("HandleEvent replay: %v", err)
	}
	if failures := notifier.snapshotFailures(); len(failures) != 1 {
		t.Fatalf("replay sent another notification: %v", failures)
	}
}

func TestInformationalEventsLeaveMeetingUntouched(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meeting := testsupport.NewMeeting(t, st, "Ongoing", "bot-21")

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "unexpected request", http.StatusTeapot)
	}))
	t.Cleanup(server.Close)

	proc := newTestProcessor(st, server.URL, changeagent.NewClient(""), &recordingNotifier{})

	for _, event := range []string{"bot.video_call_ended", "bot.recording_ready", "bot.transcription_done"} {
		evt := enqueueEvent(t, st, meeting, event, fmt.Sprintf(`{"event": %q, "data": {"bot": {"id": "bot-21"}}}`, event))
		if err := proc.HandleEvent(ctx, evt); err != nil {
			t.Fatalf("HandleEvent(%s): %v", event, err)
		}
	}

	updated := mustGetMeeting(t, st, meeting.ID)
	if updated.Status != store.StatusInProgress {
		t.Fatalf("informational event moved meeting to %s", updated.Status)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("informational events reached the provider %d times", got)
	}
}
