package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
	"github.com/avlowe/minute/internal/testsupport"
)

type stubProcessor struct{}

func (stubProcessor) HandleEvent(context.Context, *store.WebhookEvent) error { return nil }

type apiTestEnv struct {
	srv   *apiServer
	store *store.Store
	hub   *logging.StreamHub
}

func newAPITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *apiTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := lifecycle.NewManager(cfg, st, logger)
	mgr.Configure(stubProcessor{}, nil)
	hub := logging.NewStreamHub(64)
	d, err := New(cfg, st, logger, mgr, filepath.Join(cfg.Paths.LogDir, "api-test.log"), hub, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	if srv == nil {
		t.Fatal("expected api server to be configured")
	}
	return &apiTestEnv{srv: srv, store: st, hub: hub}
}

// do routes a request through the full mux so path dispatch and the auth
// guard are exercised alongside the handler under test.
func (e *apiTestEnv) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.srv.server.Handler.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestAPIWebhookEnqueuesOnce(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	meeting, err := env.store.NewMeetingWithBot(ctx, "Standup", "https://meet.example.com/standup", "bot-w1", nil)
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}

	payload := `{"event":"bot.done","data":{"bot":{"id":"bot-w1"}}}`
	w := env.do(t, http.MethodPost, "/api/webhook", payload, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ack api.WebhookAck
	decodeResponse(t, w, &ack)
	if ack.BotID != "bot-w1" || ack.Event != "bot.done" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if !strings.Contains(ack.Message, "processing started") {
		t.Fatalf("unexpected ack message: %q", ack.Message)
	}

	// Redelivery inside the dedup window is acknowledged without a
	// second queue row.
	w = env.do(t, http.MethodPost, "/api/webhook", payload, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", w.Code)
	}
	events, err := env.store.ListEventsForMeeting(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one queued event, got %d", len(events))
	}
	if events[0].Event != "bot.done" || events[0].Status != store.EventStatusPending {
		t.Fatalf("unexpected queued event: %+v", events[0])
	}

	// Unknown bots are acknowledged so the provider stops retrying.
	w = env.do(t, http.MethodPost, "/api/webhook", `{"event":"bot.done","data":{"bot":{"id":"bot-unknown"}}}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown bot, got %d", w.Code)
	}
	decodeResponse(t, w, &ack)
	if !strings.Contains(ack.Message, "no matching meeting") {
		t.Fatalf("unexpected unmatched message: %q", ack.Message)
	}

	if w := env.do(t, http.MethodPost, "/api/webhook", `{"event":"","data":{}}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/webhook", "", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", w.Code)
	}
}

func TestAPIMeetingsEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	scheduled, err := env.store.NewScheduledMeeting(ctx, "Planning", "https://meet.example.com/planning", time.Now().Add(time.Hour).UTC(), nil)
	if err != nil {
		t.Fatalf("seed scheduled: %v", err)
	}
	done, err := env.store.NewMeetingWithBot(ctx, "Finished", "https://meet.example.com/finished", "bot-done", nil)
	if err != nil {
		t.Fatalf("seed done: %v", err)
	}
	done.Status = store.StatusDone
	if err := env.store.Update(ctx, done); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/meetings", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list meetings: %d", w.Code)
	}
	var list api.MeetingList
	decodeResponse(t, w, &list)
	if list.Total != 2 || len(list.Meetings) != 2 {
		t.Fatalf("expected 2 meetings, got total=%d len=%d", list.Total, len(list.Meetings))
	}

	w = env.do(t, http.MethodGet, "/api/meetings?status=done", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered list: %d", w.Code)
	}
	decodeResponse(t, w, &list)
	if list.Total != 1 || list.Meetings[0].ID != done.ID {
		t.Fatalf("expected only the done meeting, got %+v", list)
	}

	if w := env.do(t, http.MethodGet, "/api/meetings?status=bogus", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/meetings/%d", scheduled.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get meeting: %d", w.Code)
	}
	var meeting api.Meeting
	decodeResponse(t, w, &meeting)
	if meeting.Title != "Planning" || meeting.Status != string(store.StatusScheduled) {
		t.Fatalf("unexpected meeting payload: %+v", meeting)
	}

	if w := env.do(t, http.MethodGet, "/api/meetings/0", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/meetings/99999", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown meeting, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/meetings/%d", scheduled.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete meeting: %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/meetings/%d", scheduled.ID), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestAPIMeetingNotes(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	meeting, err := env.store.NewMeetingWithBot(ctx, "Notes Sync", "https://meet.example.com/notes", "bot-notes", nil)
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	base := fmt.Sprintf("/api/meetings/%d/notes", meeting.ID)

	w := env.do(t, http.MethodPost, base, `{"content":"Review action items"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: %d: %s", w.Code, w.Body.String())
	}
	var note api.Note
	decodeResponse(t, w, &note)
	if note.MeetingID != meeting.ID || note.Content != "Review action items" {
		t.Fatalf("unexpected note: %+v", note)
	}

	if w := env.do(t, http.MethodPost, base, `{"content":"  "}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank note, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, base, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list notes: %d", w.Code)
	}
	var notes api.NoteList
	decodeResponse(t, w, &notes)
	if len(notes.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes.Notes))
	}
}

func TestAPINotesProjection(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	done, err := env.store.NewMeetingWithBot(ctx, "Retro", "https://meet.example.com/retro", "bot-retro", nil)
	if err != nil {
		t.Fatalf("seed done: %v", err)
	}
	done.Status = store.StatusDone
	done.SummaryJSON = `{"content":[{"type":"paragraph","content":"Recap"}]}`
	if err := env.store.Update(ctx, done); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if _, err := env.store.NewMeetingWithBot(ctx, "Live", "https://meet.example.com/live", "bot-live", nil); err != nil {
		t.Fatalf("seed live: %v", err)
	}

	// The notes collection only surfaces completed meetings.
	w := env.do(t, http.MethodGet, "/api/notes", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list notes: %d", w.Code)
	}
	var list api.MeetingList
	decodeResponse(t, w, &list)
	if list.Total != 1 || list.Meetings[0].ID != done.ID {
		t.Fatalf("expected only the done meeting, got %+v", list)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/notes/%d", done.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("note by id: %d", w.Code)
	}

	// Meeting links arrive percent-encoded so their slashes survive
	// path cleaning.
	w = env.do(t, http.MethodGet, "/api/notes/meeting/"+url.PathEscape("https://meet.example.com/retro"), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("note by meeting url: %d: %s", w.Code, w.Body.String())
	}
	var meeting api.Meeting
	decodeResponse(t, w, &meeting)
	if meeting.ID != done.ID {
		t.Fatalf("expected meeting %d, got %+v", done.ID, meeting)
	}

	if w := env.do(t, http.MethodGet, "/api/notes/meeting/"+url.PathEscape("https://meet.example.com/nowhere"), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown url, got %d", w.Code)
	}

	note, err := env.store.CreateNote(ctx, done.ID, nil, "Follow up with vendor")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/notes/entry/%d", note.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete note entry: %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/notes/entry/%d", note.ID), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestAPINoteEntryUpdate(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	meeting, err := env.store.NewMeetingWithBot(ctx, "Retro", "https://meet.example.com/retro", "bot-retro", nil)
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	note, err := env.store.CreateNote(ctx, meeting.ID, nil, "first draft")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	entryPath := fmt.Sprintf("/api/notes/entry/%d", note.ID)
	w := env.do(t, http.MethodPatch, entryPath, `{"content":"polished minutes"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("update note: %d: %s", w.Code, w.Body.String())
	}
	var updated api.Note
	decodeResponse(t, w, &updated)
	if updated.ID != note.ID || updated.Content != "polished minutes" {
		t.Fatalf("unexpected updated note: %+v", updated)
	}

	stored, err := env.store.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("reload note: %v", err)
	}
	if stored.Content != "polished minutes" {
		t.Fatalf("expected persisted content, got %q", stored.Content)
	}

	if w := env.do(t, http.MethodPatch, entryPath, `{"content":"   "}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPatch, "/api/notes/entry/99999", `{"content":"x"}`, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown note, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, entryPath, `{"content":"x"}`, ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PUT, got %d", w.Code)
	}
}

func TestAPIUsersAndAuthToken(t *testing.T) {
	env := newAPITestEnv(t, testsupport.WithJWTSecret("api-test-secret"))

	w := env.do(t, http.MethodPost, "/api/users", `{"email":"Ada@Example.com","password":"s3cret"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: %d: %s", w.Code, w.Body.String())
	}
	var user api.User
	decodeResponse(t, w, &user)
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}

	if w := env.do(t, http.MethodPost, "/api/users", `{"email":"ada@example.com","password":"other"}`, ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/users", `{"email":"not-an-email","password":"x"}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/users", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list users: %d", w.Code)
	}
	var users api.UserList
	decodeResponse(t, w, &users)
	if len(users.Users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users.Users))
	}

	w = env.do(t, http.MethodPost, "/api/auth/token", `{"email":"ada@example.com","password":"s3cret"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("issue token: %d: %s", w.Code, w.Body.String())
	}
	var token api.AuthToken
	decodeResponse(t, w, &token)
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token payload: %+v", token)
	}

	if w := env.do(t, http.MethodPost, "/api/auth/token", `{"email":"ada@example.com","password":"wrong"}`, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", user.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete user: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAPIAuthGuard(t *testing.T) {
	env := newAPITestEnv(t, testsupport.WithAPIToken("sekrit"), testsupport.WithJWTSecret("guard-secret"))

	if w := env.do(t, http.MethodGet, "/api/status", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/status", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/status", "", "sekrit")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with api token, got %d", w.Code)
	}
	var status api.DaemonStatus
	decodeResponse(t, w, &status)
	if status.Running {
		t.Fatal("expected daemon to report not running")
	}

	// Session tokens issued by the credential exchange pass the same guard.
	if w := env.do(t, http.MethodPost, "/api/users", `{"email":"guard@example.com","password":"pw"}`, "sekrit"); w.Code != http.StatusCreated {
		t.Fatalf("create user through guard: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/auth/token", `{"email":"guard@example.com","password":"pw"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("issue token: %d: %s", w.Code, w.Body.String())
	}
	var token api.AuthToken
	decodeResponse(t, w, &token)
	if w := env.do(t, http.MethodGet, "/api/status", "", token.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("expected session token to pass guard, got %d", w.Code)
	}

	// Webhook delivery stays open even when a token is configured; the
	// provider cannot authenticate.
	if w := env.do(t, http.MethodPost, "/api/webhook", `{"event":"","data":{}}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected webhook to bypass guard with 400, got %d", w.Code)
	}
}

func newRecallStub(t *testing.T, record string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bot/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"id":"bot-new"}`)
			return
		}
		fmt.Fprint(w, record)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAPISendAndScheduleBot(t *testing.T) {
	stub := newRecallStub(t, `{"id":"bot-new","status_changes":[{"code":"in_call_recording"}]}`)
	env := newAPITestEnv(t, testsupport.WithRecallBaseURL(stub.URL))

	w := env.do(t, http.MethodPost, "/api/send-bot", `{"meeting_url":"https://meet.example.com/live"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("send bot: %d: %s", w.Code, w.Body.String())
	}
	var meeting api.Meeting
	decodeResponse(t, w, &meeting)
	if meeting.BotID != "bot-new" || meeting.Status != string(store.StatusInProgress) {
		t.Fatalf("unexpected dispatched meeting: %+v", meeting)
	}

	if w := env.do(t, http.MethodPost, "/api/send-bot", `{"meeting_url":""}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/bot-status/bot-new", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("bot status: %d", w.Code)
	}
	var botStatus api.BotStatus
	decodeResponse(t, w, &botStatus)
	if !botStatus.InMeeting {
		t.Fatalf("expected bot to be in meeting, got %+v", botStatus)
	}

	when := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	w = env.do(t, http.MethodPost, "/api/schedule-bot", fmt.Sprintf(`{"meeting_url":"https://meet.example.com/later","scheduled_time":%q,"title":"Planning"}`, when), "")
	if w.Code != http.StatusOK {
		t.Fatalf("schedule bot: %d: %s", w.Code, w.Body.String())
	}
	var scheduled api.Meeting
	decodeResponse(t, w, &scheduled)
	if scheduled.Status != string(store.StatusScheduled) || scheduled.Title != "Planning" {
		t.Fatalf("unexpected scheduled meeting: %+v", scheduled)
	}

	if w := env.do(t, http.MethodPost, "/api/schedule-bot", `{"meeting_url":"https://meet.example.com/later","scheduled_time":"yesterday"}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/schedule-bot/%d", scheduled.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unschedule bot: %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/schedule-bot/%d", scheduled.ID), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancellation, got %d", w.Code)
	}

	// A bot already in its meeting cannot be unscheduled.
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/schedule-bot/%d", meeting.ID), "", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for dispatched bot, got %d", w.Code)
	}
}

func TestAPIMeetingVideo(t *testing.T) {
	record := `{"id":"bot-video","recordings":[{"media_shortcuts":{"video_mixed":{"data":{"download_url":"https://cdn.example.com/video.mp4"}}}}]}`
	stub := newRecallStub(t, record)
	env := newAPITestEnv(t, testsupport.WithRecallBaseURL(stub.URL))
	ctx := context.Background()

	meeting, err := env.store.NewMeetingWithBot(ctx, "Recorded", "https://meet.example.com/recorded", "bot-video", nil)
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}

	// Recordings are only exposed once the meeting is done.
	if w := env.do(t, http.MethodGet, fmt.Sprintf("/api/meetings/%d/video", meeting.ID), "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before completion, got %d", w.Code)
	}

	meeting.Status = store.StatusDone
	if err := env.store.Update(ctx, meeting); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/meetings/%d/video", meeting.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("video: %d: %s", w.Code, w.Body.String())
	}
	var video api.VideoURL
	decodeResponse(t, w, &video)
	if video.VideoURL != "https://cdn.example.com/video.mp4" {
		t.Fatalf("unexpected video url: %q", video.VideoURL)
	}
	if video.ExpiresIn != "6 hours" {
		t.Fatalf("unexpected expiry label: %q", video.ExpiresIn)
	}
}

func TestAPISummarizeMeeting(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summarize" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"type":"paragraph","content":"Team agreed on next steps."}]}`)
	}))
	t.Cleanup(stub.Close)

	env := newAPITestEnv(t, testsupport.WithChangeAgent(stub.URL, "ca-key"))
	ctx := context.Background()

	meeting, err := env.store.NewMeetingWithBot(ctx, "Summary Sync", "https://meet.example.com/summary", "bot-summary", nil)
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}

	if w := env.do(t, http.MethodPost, fmt.Sprintf("/api/meetings/%d/summarize", meeting.ID), "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without transcript, got %d", w.Code)
	}

	meeting.TranscriptJSON = `[{"name":"Ada","words":"let's ship it"}]`
	meeting.ParticipantsJSON = `["Ada"]`
	if err := env.store.Update(ctx, meeting); err != nil {
		t.Fatalf("store transcript: %v", err)
	}

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/meetings/%d/summarize", meeting.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summarize: %d: %s", w.Code, w.Body.String())
	}
	var result api.SummaryResult
	decodeResponse(t, w, &result)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	updated, err := env.store.GetByID(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("reload meeting: %v", err)
	}
	if !strings.Contains(updated.SummaryJSON, "next steps") {
		t.Fatalf("expected summary persisted, got %q", updated.SummaryJSON)
	}
}

func TestAPICalendarEvents(t *testing.T) {
	env := newAPITestEnv(t)
	ctx := context.Background()

	owner, err := env.store.CreateUser(ctx, "cal@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	body := fmt.Sprintf(`{"user_id":%d,"title":"Daily Standup","recurrence":"FREQ=DAILY","start_time":"2026-03-02T09:00:00Z"}`, owner.ID)
	w := env.do(t, http.MethodPost, "/api/calendar-events", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create calendar event: %d: %s", w.Code, w.Body.String())
	}
	var event api.CalendarEvent
	decodeResponse(t, w, &event)
	if event.Title != "Daily Standup" || event.UserID != owner.ID {
		t.Fatalf("unexpected event: %+v", event)
	}

	if w := env.do(t, http.MethodPost, "/api/calendar-events", fmt.Sprintf(`{"user_id":%d,"title":"Bad","recurrence":"NOT-A-RULE","start_time":"2026-03-02T09:00:00Z"}`, owner.ID), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid recurrence, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/calendar-events", `{"user_id":99999,"title":"Ghost"}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown user, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/calendar-events", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/calendar-events?user_id=%d", owner.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list calendar events: %d", w.Code)
	}
	var list api.CalendarEventList
	decodeResponse(t, w, &list)
	if len(list.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(list.Events))
	}

	path := fmt.Sprintf("/api/calendar-events/%d/occurrences?from=2026-03-02T00:00:00Z&until=2026-03-04T12:00:00Z", event.ID)
	w = env.do(t, http.MethodGet, path, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("occurrences: %d: %s", w.Code, w.Body.String())
	}
	var occurrences api.OccurrenceList
	decodeResponse(t, w, &occurrences)
	if len(occurrences.Occurrences) != 3 {
		t.Fatalf("expected 3 daily occurrences, got %v", occurrences.Occurrences)
	}

	if w := env.do(t, http.MethodGet, fmt.Sprintf("/api/calendar-events/%d/occurrences?from=2026-03-04T00:00:00Z&until=2026-03-02T00:00:00Z", event.ID), "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/calendar-events/%d", event.ID), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete calendar event: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, fmt.Sprintf("/api/calendar-events/%d", event.ID), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAPILogsEndpoint(t *testing.T) {
	env := newAPITestEnv(t)

	env.hub.Publish(logging.LogEvent{Level: "INFO", Message: "bot dispatched", Component: "lifecycle", MeetingID: 7})
	env.hub.Publish(logging.LogEvent{Level: "INFO", Message: "api server listening", Component: "api-server"})

	w := env.do(t, http.MethodGet, "/api/logs?tail=1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs: %d", w.Code)
	}
	var resp api.LogStreamResponse
	decodeResponse(t, w, &resp)
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(resp.Events))
	}
	if resp.Next == 0 {
		t.Fatal("expected cursor to advance")
	}

	w = env.do(t, http.MethodGet, "/api/logs?tail=1&component=lifecycle", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered logs: %d", w.Code)
	}
	decodeResponse(t, w, &resp)
	if len(resp.Events) != 1 || resp.Events[0].MeetingID != 7 {
		t.Fatalf("expected only the lifecycle event, got %+v", resp.Events)
	}

	w = env.do(t, http.MethodGet, "/api/logs?tail=1&meeting=7", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("meeting-filtered logs: %d", w.Code)
	}
	decodeResponse(t, w, &resp)
	if len(resp.Events) != 1 || resp.Events[0].Component != "lifecycle" {
		t.Fatalf("expected meeting filter to match one event, got %+v", resp.Events)
	}
}
