package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/avlowe/minute/internal/api"
)

func buildStatusCountRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildMeetingListRows(meetings []api.Meeting) [][]string {
	if len(meetings) == 0 {
		return nil
	}
	sorted := make([]api.Meeting, len(meetings))
	copy(sorted, meetings)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseListTime(sorted[i].CreatedAt)
		tj := parseListTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, meeting := range sorted {
		title := strings.TrimSpace(meeting.Title)
		if title == "" {
			title = "Untitled Meeting"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", meeting.ID),
			title,
			formatStatusLabel(meeting.Status),
			formatDisplayTime(meeting.ScheduledTime),
			formatBotID(meeting.BotID),
		})
	}
	return rows
}

func buildEventListRows(events []api.WebhookEvent) [][]string {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, evt := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", evt.ID),
			formatBotID(evt.BotID),
			evt.Event,
			formatStatusLabel(evt.Status),
			fmt.Sprintf("%d", evt.Attempts),
			formatEventError(evt.LastError),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(status, "_", " "))
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseListTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatBotID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

func formatEventError(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 48 {
		return value[:45] + "..."
	}
	return value
}
