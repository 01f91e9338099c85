package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/store"
)

// meetingsAPI abstracts meeting operations so commands behave identically
// whether the daemon is reachable over IPC or the store is opened directly.
type meetingsAPI interface {
	List(ctx context.Context, statuses []string) ([]api.Meeting, error)
	Describe(ctx context.Context, id int64) (*api.Meeting, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (store.HealthSummary, error)
	ListEvents(ctx context.Context, status string) ([]api.WebhookEvent, error)
	RetryEvents(ctx context.Context, ids []int64) (int64, error)
}

// withMeetings dials the daemon when available and falls back to direct
// store access when it is not.
func (c *commandContext) withMeetings(fn func(meetingsAPI) error) error {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		return fn(&meetingsIPCAdapter{client: client})
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	st, openErr := store.Open(cfg)
	if openErr != nil {
		return openErr
	}
	defer st.Close()
	return fn(&meetingsStoreAdapter{store: st, meetings: api.NewMeetingService(st)})
}

// --- IPC adapter ---

type meetingsIPCAdapter struct {
	client *ipc.Client
}

func (a *meetingsIPCAdapter) List(_ context.Context, statuses []string) ([]api.Meeting, error) {
	resp, err := a.client.MeetingsList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Meetings, nil
}

func (a *meetingsIPCAdapter) Describe(_ context.Context, id int64) (*api.Meeting, error) {
	resp, err := a.client.MeetingDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Meeting, nil
}

func (a *meetingsIPCAdapter) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.MeetingRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *meetingsIPCAdapter) Health(_ context.Context) (store.HealthSummary, error) {
	resp, err := a.client.MeetingHealth()
	if err != nil {
		return store.HealthSummary{}, err
	}
	return store.HealthSummary{
		Total:         resp.Total,
		Scheduled:     resp.Scheduled,
		InProgress:    resp.InProgress,
		Processing:    resp.Processing,
		Done:          resp.Done,
		Errored:       resp.Errored,
		PendingEvents: resp.PendingEvents,
		FailedEvents:  resp.FailedEvents,
	}, nil
}

func (a *meetingsIPCAdapter) ListEvents(_ context.Context, status string) ([]api.WebhookEvent, error) {
	resp, err := a.client.EventsList(status)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (a *meetingsIPCAdapter) RetryEvents(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.EventsRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// --- Store adapter ---

type meetingsStoreAdapter struct {
	store    *store.Store
	meetings *api.MeetingService
}

func (a *meetingsStoreAdapter) List(ctx context.Context, statuses []string) ([]api.Meeting, error) {
	var filters []store.Status
	for _, s := range statuses {
		if parsed, ok := store.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.meetings.List(ctx, filters...)
}

func (a *meetingsStoreAdapter) Describe(ctx context.Context, id int64) (*api.Meeting, error) {
	return a.meetings.Describe(ctx, id)
}

func (a *meetingsStoreAdapter) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *meetingsStoreAdapter) Health(ctx context.Context) (store.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *meetingsStoreAdapter) ListEvents(ctx context.Context, status string) ([]api.WebhookEvent, error) {
	parsed, ok := store.ParseEventStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown event status %q", status)
	}
	events, err := a.store.ListEventsByStatus(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return api.FromWebhookEvents(events), nil
}

func (a *meetingsStoreAdapter) RetryEvents(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailedEvents(ctx, ids...)
}
