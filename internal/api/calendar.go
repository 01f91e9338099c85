package api

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/avlowe/minute/internal/store"
)

// maxOccurrences bounds a single expansion so an open-ended rule over a
// wide window cannot balloon the response.
const maxOccurrences = 500

// ValidateRecurrence checks that a recurrence rule parses. Empty rules
// are allowed; they mark a one-off event.
func ValidateRecurrence(rule string) error {
	if rule == "" {
		return nil
	}
	if _, err := rrule.StrToRRule(rule); err != nil {
		return fmt.Errorf("parse recurrence %q: %w", rule, err)
	}
	return nil
}

// Occurrences expands a calendar event within [from, until], inclusive.
// Non-recurring events yield their start time when it falls in the window.
func Occurrences(event *store.CalendarEvent, from, until time.Time) ([]string, error) {
	if event == nil {
		return nil, nil
	}
	if event.Recurrence == "" {
		if event.StartTime == nil {
			return nil, nil
		}
		start := event.StartTime.UTC()
		if start.Before(from) || start.After(until) {
			return nil, nil
		}
		return []string{FormatTime(start)}, nil
	}
	if event.StartTime == nil {
		return nil, fmt.Errorf("recurring event %d has no start time", event.ID)
	}

	rule, err := rrule.StrToRRule(event.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence %q: %w", event.Recurrence, err)
	}
	rule.DTStart(event.StartTime.UTC())

	var set rrule.Set
	set.RRule(rule)

	times := set.Between(from.UTC(), until.UTC(), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}
	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, FormatTime(t))
	}
	return out, nil
}
