package changeagent

import "strings"

// Fragment types understood by the notes frontend.
const (
	FragmentText          = "text"
	FragmentParticipant   = "participant"
	FragmentTimestampLink = "timestamp_link"
)

// participantColors cycle by roster index so a participant keeps the
// same highlight across transcript and summary views.
var participantColors = []string{
	"bg-blue-50 text-blue-900",
	"bg-green-50 text-green-900",
	"bg-purple-50 text-purple-900",
	"bg-orange-50 text-orange-900",
	"bg-pink-50 text-pink-900",
	"bg-indigo-50 text-indigo-900",
}

// Summary is the structured meeting summary persisted on the meeting.
type Summary struct {
	Content      []Fragment    `json:"content"`
	Participants []LegendEntry `json:"participants"`
}

// Fragment is one typed span of summary content. Participant fragments
// carry the participant id, timestamp links the transcript offset in
// seconds.
type Fragment struct {
	Type          string  `json:"type"`
	Content       string  `json:"content"`
	ParticipantID string  `json:"participantId,omitempty"`
	Timestamp     float64 `json:"timestamp,omitempty"`
	ClassName     string  `json:"className,omitempty"`
}

// LegendEntry maps a participant to a stable id and color class.
type LegendEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ColorClass string `json:"colorClass"`
}

// Speech is one speaker turn of the transcript sent for summarization.
type Speech struct {
	Name  string
	Words string
}

// ParticipantID derives the stable participant identifier used to link
// summary fragments to the legend.
func ParticipantID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// ParticipantColor returns the color class for a roster index.
func ParticipantColor(index int) string {
	return participantColors[index%len(participantColors)]
}

// Legend builds the participant legend in roster order.
func Legend(participants []string) []LegendEntry {
	legend := make([]LegendEntry, 0, len(participants))
	for i, name := range participants {
		legend = append(legend, LegendEntry{
			ID:         ParticipantID(name),
			Name:       name,
			ColorClass: ParticipantColor(i),
		})
	}
	return legend
}

// localSummary is the deterministic digest produced when no remote
// summarizer is configured: a lead-in, the first three participants, and
// a closing sentence.
func localSummary(participants []string, legend []LegendEntry) *Summary {
	content := []Fragment{{Type: FragmentText, Content: "Meeting summary: "}}
	for i, name := range participants {
		if i >= 3 {
			break
		}
		if i > 0 {
			content = append(content, Fragment{Type: FragmentText, Content: ", "})
		}
		content = append(content, Fragment{
			Type:          FragmentParticipant,
			Content:       name,
			ParticipantID: ParticipantID(name),
		})
	}
	content = append(content, Fragment{
		Type:    FragmentText,
		Content: " discussed various topics during this meeting.",
	})
	return &Summary{Content: content, Participants: legend}
}

// formatTranscript renders speaker turns as "Name: words" lines for the
// remote summarizer prompt.
func formatTranscript(speech []Speech) string {
	lines := make([]string, 0, len(speech))
	for _, turn := range speech {
		name := turn.Name
		if name == "" {
			name = "Speaker"
		}
		lines = append(lines, name+": "+turn.Words)
	}
	return strings.Join(lines, "\n")
}
