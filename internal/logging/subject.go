package logging

import "strings"

// FormatSubject builds the lane/meeting/event subject string used in console output.
func FormatSubject(lane, meetingID, event string) string {
	lane = strings.TrimSpace(lane)
	meetingID = strings.TrimSpace(meetingID)
	event = strings.TrimSpace(event)
	parts := make([]string, 0, 3)
	if lane != "" {
		var formattedLane string
		if len(lane) > 1 {
			formattedLane = strings.ToUpper(lane[:1]) + strings.ToLower(lane[1:])
		} else {
			formattedLane = strings.ToUpper(lane)
		}
		parts = append(parts, formattedLane)
	}
	switch {
	case meetingID != "" && event != "":
		parts = append(parts, "Meeting #"+meetingID+" ("+event+")")
	case meetingID != "":
		parts = append(parts, "Meeting #"+meetingID)
	case event != "":
		parts = append(parts, event)
	}
	return strings.Join(parts, " / ")
}
