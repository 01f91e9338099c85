package testsupport

import (
	"context"
	"testing"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewMeeting creates an in-progress meeting bound to a bot for tests.
func NewMeeting(t testing.TB, st *store.Store, title, botID string) *store.Meeting {
	t.Helper()

	meeting, err := st.NewMeetingWithBot(context.Background(), title, "https://meet.example.com/abc", botID, nil)
	if err != nil {
		t.Fatalf("store.NewMeetingWithBot: %v", err)
	}
	return meeting
}
