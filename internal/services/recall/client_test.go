package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCreateBotSendsTokenAndRecordingConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bot/" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Token secret-key" {
			t.Fatalf("unexpected auth header: %q", auth)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["meeting_url"] != "https://meet.example.com/abc" {
			t.Fatalf("unexpected meeting url: %v", payload["meeting_url"])
		}
		if payload["webhook_url"] != "https://minute.example.com/api/webhook" {
			t.Fatalf("unexpected webhook url: %v", payload["webhook_url"])
		}
		encoded, _ := json.Marshal(payload["recording_config"])
		if !strings.Contains(string(encoded), "recallai_streaming") {
			t.Fatalf("expected streaming transcript config, got %s", encoded)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"id": "bot-123", "status": "joining"}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("secret-key",
		WithBaseURL(server.URL),
		WithWebhookURL("https://minute.example.com/api/webhook"),
	)
	bot, err := client.CreateBot(context.Background(), "https://meet.example.com/abc")
	if err != nil {
		t.Fatalf("CreateBot failed: %v", err)
	}
	if bot.ID != "bot-123" {
		t.Fatalf("unexpected bot id: %q", bot.ID)
	}
	if bot.MeetingURL != "https://meet.example.com/abc" {
		t.Fatalf("unexpected meeting url: %q", bot.MeetingURL)
	}
}

func TestCreateBotSurfacesProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid meeting url"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("secret-key", WithBaseURL(server.URL))
	if _, err := client.CreateBot(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error from provider failure")
	} else if !strings.Contains(err.Error(), "http 400") {
		t.Fatalf("expected status in error, got %v", err)
	}

	unkeyed := NewClient("", WithBaseURL(server.URL))
	if _, err := unkeyed.CreateBot(context.Background(), "https://meet.example.com/abc"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestIsBotInMeetingReadsLastStatusChange(t *testing.T) {
	cases := []struct {
		name    string
		history string
		want    bool
	}{
		{
			name:    "recording",
			history: `[{"code": "ready"}, {"code": "in_call_recording"}]`,
			want:    true,
		},
		{
			name:    "call ended",
			history: `[{"code": "ready"}, {"code": "in_call_recording"}, {"code": "done"}]`,
			want:    false,
		},
		{
			name:    "no history",
			history: `[]`,
			want:    false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/bot/bot-42/" {
					t.Fatalf("unexpected path: %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write([]byte(`{"id": "bot-42", "status_changes": ` + tc.history + `}`)); err != nil {
					t.Fatalf("write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient("secret-key", WithBaseURL(server.URL))
			inMeeting, err := client.IsBotInMeeting(context.Background(), "bot-42")
			if err != nil {
				t.Fatalf("IsBotInMeeting failed: %v", err)
			}
			if inMeeting != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, inMeeting)
			}
		})
	}
}

func TestIsBotInMeetingPropagatesFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("secret-key", WithBaseURL(server.URL))
	if _, err := client.IsBotInMeeting(context.Background(), "bot-42"); err == nil {
		t.Fatal("expected fetch error to propagate, not read as false")
	}
}

func TestDownloadTranscriptFlattensWords(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/artifacts/transcript.json", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Fatalf("expected pre-signed download without auth, got %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		body := `[
			{
				"participant": {"id": 100, "name": "Ada Lovelace"},
				"words": [
					{"text": "shall", "start_timestamp": {"relative": 1.5}, "end_timestamp": {"relative": 1.9}},
					{"text": "we", "start_timestamp": {"relative": 2.0}, "end_timestamp": {"relative": 2.2}},
					{"text": "begin", "start_timestamp": {"relative": 2.3}, "end_timestamp": {"relative": 2.8}}
				]
			},
			{
				"participant": {"id": 101, "name": "Grace Hopper"},
				"words": []
			},
			{
				"participant": {"id": 101, "name": "Grace Hopper"},
				"words": [
					{"text": "yes", "start_timestamp": {"relative": 3.0}, "end_timestamp": {"relative": 3.4}}
				]
			}
		]`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	record := &BotRecord{
		Recordings: []Recording{{
			MediaShortcuts: MediaShortcuts{
				Transcript: &MediaArtifact{Data: ArtifactData{DownloadURL: server.URL + "/artifacts/transcript.json"}},
			},
		}},
	}

	client := NewClient("secret-key", WithBaseURL(server.URL))
	segments, err := client.DownloadTranscript(context.Background(), record)
	if err != nil {
		t.Fatalf("DownloadTranscript failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments (wordless entries dropped), got %d", len(segments))
	}
	first := segments[0]
	if first.Name != "Ada Lovelace" || first.ID != 100 {
		t.Fatalf("unexpected speaker: %#v", first)
	}
	if first.Words != "shall we begin" {
		t.Fatalf("expected joined words, got %q", first.Words)
	}
	if first.StartTimestamp != 1.5 || first.EndTimestamp != 2.8 {
		t.Fatalf("expected span 1.5..2.8, got %v..%v", first.StartTimestamp, first.EndTimestamp)
	}
	if segments[1].Words != "yes" {
		t.Fatalf("unexpected second segment: %#v", segments[1])
	}

	// Records without a transcript artifact are not an error.
	none, err := client.DownloadTranscript(context.Background(), &BotRecord{})
	if err != nil {
		t.Fatalf("DownloadTranscript without artifact failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no segments, got %d", len(none))
	}
}

func TestDownloadParticipantsDropsUnnamed(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/artifacts/participants.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`[{"name": "Ada Lovelace"}, {"name": ""}, {"name": "Grace Hopper"}]`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	record := &BotRecord{
		Recordings: []Recording{{
			MediaShortcuts: MediaShortcuts{
				ParticipantEvents: &ParticipantArtifact{
					Data: ParticipantArtifactData{ParticipantsDownloadURL: server.URL + "/artifacts/participants.json"},
				},
			},
		}},
	}

	client := NewClient("secret-key", WithBaseURL(server.URL))
	names, err := client.DownloadParticipants(context.Background(), record)
	if err != nil {
		t.Fatalf("DownloadParticipants failed: %v", err)
	}
	if len(names) != 2 || names[0] != "Ada Lovelace" || names[1] != "Grace Hopper" {
		t.Fatalf("unexpected roster: %v", names)
	}
}

func TestRecordDuration(t *testing.T) {
	started := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	completed := started.Add(45*time.Minute + 10*time.Second)
	inFlight := BotRecord{Recordings: []Recording{{StartedAt: &started}}}
	finished := BotRecord{Recordings: []Recording{
		{StartedAt: &started},
		{StartedAt: &started, CompletedAt: &completed},
	}}

	if got := inFlight.Duration(); got != "" {
		t.Fatalf("expected empty duration for in-flight recording, got %q", got)
	}
	if got := finished.Duration(); got != "45 min" {
		t.Fatalf("expected 45 min, got %q", got)
	}
	if got := (&BotRecord{}).Duration(); got != "" {
		t.Fatalf("expected empty duration without recordings, got %q", got)
	}
}

func TestResolveVideoURLCachesResolution(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		body := `{
			"id": "bot-77",
			"recordings": [{
				"media_shortcuts": {
					"video_mixed": {"data": {"download_url": "https://cdn.example.com/video.mp4?sig=abc"}}
				}
			}]
		}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("secret-key", WithBaseURL(server.URL))
	for i := 0; i < 3; i++ {
		link, err := client.ResolveVideoURL(context.Background(), "bot-77")
		if err != nil {
			t.Fatalf("ResolveVideoURL failed: %v", err)
		}
		if link != "https://cdn.example.com/video.mp4?sig=abc" {
			t.Fatalf("unexpected link: %q", link)
		}
	}
	if fetches != 1 {
		t.Fatalf("expected a single provider fetch, got %d", fetches)
	}
}

func TestResolveVideoURLWithoutArtifact(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"id": "bot-88", "recordings": [{"media_shortcuts": {}}]}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("secret-key", WithBaseURL(server.URL))
	for i := 0; i < 2; i++ {
		link, err := client.ResolveVideoURL(context.Background(), "bot-88")
		if err != nil {
			t.Fatalf("ResolveVideoURL failed: %v", err)
		}
		if link != "" {
			t.Fatalf("expected no link, got %q", link)
		}
	}
	if fetches != 2 {
		t.Fatalf("expected misses to refetch, got %d fetches", fetches)
	}
}
