package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/notifications"
	"github.com/avlowe/minute/internal/services"
	"github.com/avlowe/minute/internal/services/changeagent"
	"github.com/avlowe/minute/internal/services/recall"
	"github.com/avlowe/minute/internal/store"
)

// fallbackTitle names a completed meeting when neither the provider nor the
// webhook metadata supplies one.
const fallbackTitle = "Completed Meeting"

// BotProvider is the provider surface the processor needs to turn a finished
// bot into meeting artifacts.
type BotProvider interface {
	RetrieveBot(ctx context.Context, botID string) (*recall.BotRecord, error)
	DownloadTranscript(ctx context.Context, record *recall.BotRecord) ([]recall.TranscriptSegment, error)
	DownloadParticipants(ctx context.Context, record *recall.BotRecord) ([]string, error)
}

// Summarizer produces a structured summary from a flattened transcript.
type Summarizer interface {
	Summarize(ctx context.Context, speech []changeagent.Speech, participants []string) (*changeagent.Summary, error)
}

// Processor owns the meeting state machine. It applies one claimed webhook
// event to its meeting, performing provider fetches and summarization as the
// event demands.
type Processor struct {
	store      *store.Store
	provider   BotProvider
	summarizer Summarizer
	notifier   notifications.Service
	logger     *slog.Logger
}

// NewProcessor constructs the lifecycle processor.
func NewProcessor(st *store.Store, provider BotProvider, summarizer Summarizer, notifier notifications.Service, logger *slog.Logger) *Processor {
	return &Processor{
		store:      st,
		provider:   provider,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "lifecycle-processor"),
	}
}

type eventHandlerFunc func(*Processor, context.Context, *store.WebhookEvent) error

// Event dispatch is table-driven over the parsed kind. Adding a kind means
// adding a row here; unmapped kinds acknowledge without touching the meeting.
var eventHandlers = map[EventKind]eventHandlerFunc{
	KindDone:           (*Processor).handleDone,
	KindError:          (*Processor).handleError,
	KindVideoCallEnded: (*Processor).handleInformational,
	KindRecordingReady: (*Processor).handleInformational,
	KindUnknown:        (*Processor).handleInformational,
}

// HandleEvent applies a claimed event to its meeting. Reapplying a completed
// event is harmless: terminal meetings absorb every event as a no-op.
func (p *Processor) HandleEvent(ctx context.Context, evt *store.WebhookEvent) error {
	if evt == nil {
		return services.Wrap(services.ErrValidation, "lifecycle", "handle event", "event is nil", nil)
	}
	handler, ok := eventHandlers[ParseEventKind(evt.Event)]
	if !ok {
		handler = (*Processor).handleInformational
	}
	return handler(p, ctx, evt)
}

func (p *Processor) loadMeeting(ctx context.Context, evt *store.WebhookEvent) (*store.Meeting, error) {
	meeting, err := p.store.GetByID(ctx, evt.MeetingID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "lifecycle", "load meeting", "", err)
	}
	if meeting == nil {
		return nil, services.Wrap(services.ErrNotFound, "lifecycle", "load meeting",
			fmt.Sprintf("meeting %d no longer exists", evt.MeetingID), nil)
	}
	return meeting, nil
}

func (p *Processor) handleDone(ctx context.Context, evt *store.WebhookEvent) error {
	logger := logging.WithContext(ctx, p.logger)

	meeting, err := p.loadMeeting(ctx, evt)
	if err != nil {
		return err
	}
	if meeting.Status.Terminal() {
		logger.Debug("meeting already terminal; event is a no-op",
			logging.String("status", string(meeting.Status)))
		return nil
	}

	if meeting.Status != store.StatusProcessing {
		moved, err := p.store.TransitionStatus(ctx, meeting.ID, meeting.Status, store.StatusProcessing)
		if err != nil {
			return services.Wrap(services.ErrTransient, "lifecycle", "enter processing", "", err)
		}
		if !moved {
			refreshed, err := p.loadMeeting(ctx, evt)
			if err != nil {
				return err
			}
			if refreshed.Status.Terminal() {
				return nil
			}
			if refreshed.Status != store.StatusProcessing {
				return services.Wrap(services.ErrTransient, "lifecycle", "enter processing",
					fmt.Sprintf("meeting moved to %s mid-claim", refreshed.Status), nil)
			}
			meeting = refreshed
		} else {
			meeting.Status = store.StatusProcessing
		}
	}

	record, err := p.provider.RetrieveBot(ctx, meeting.BotID)
	if err != nil {
		return p.completeFromMetadata(ctx, logger, meeting, evt, err)
	}

	title := record.Title()
	if title == "" {
		title = fallbackTitle
	}
	meeting.Title = title
	meeting.Duration = record.Duration()

	segments, err := p.provider.DownloadTranscript(ctx, record)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "lifecycle", "download transcript", "", err)
	}
	participants, err := p.provider.DownloadParticipants(ctx, record)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "lifecycle", "download participants", "", err)
	}

	if len(segments) > 0 {
		encoded, err := json.Marshal(segments)
		if err != nil {
			return services.Wrap(services.ErrValidation, "lifecycle", "encode transcript", "", err)
		}
		meeting.TranscriptJSON = string(encoded)
	}
	if len(participants) > 0 {
		encoded, err := json.Marshal(participants)
		if err != nil {
			return services.Wrap(services.ErrValidation, "lifecycle", "encode participants", "", err)
		}
		meeting.ParticipantsJSON = string(encoded)
	}
	if err := p.store.Update(ctx, meeting); err != nil {
		return services.Wrap(services.ErrTransient, "lifecycle", "persist extraction", "", err)
	}
	logger.Info("meeting artifacts extracted",
		logging.String(logging.FieldEventType, "artifacts_extracted"),
		logging.Int("transcript_segments", len(segments)),
		logging.Int("participants", len(participants)),
		logging.String("meeting_duration", meeting.Duration),
	)

	if len(segments) == 0 {
		logger.Info("no transcript captured; completing without summary")
		return p.finishDone(ctx, logger, meeting)
	}

	summary, err := p.summarizer.Summarize(ctx, speechFromSegments(segments), participants)
	if err != nil {
		logger.Warn("summarization failed; completing without summary",
			logging.Error(err),
			logging.Alert("summary_failed"),
			logging.String(logging.FieldEventType, "summary_failed"),
		)
		meeting.ErrorMessage = fmt.Sprintf("summarization failed: %s", strings.TrimSpace(err.Error()))
		if uerr := p.store.Update(ctx, meeting); uerr != nil {
			return services.Wrap(services.ErrTransient, "lifecycle", "persist summary failure", "", uerr)
		}
		return p.finishDone(ctx, logger, meeting)
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		return services.Wrap(services.ErrValidation, "lifecycle", "encode summary", "", err)
	}
	meeting.SummaryJSON = string(encoded)
	if err := p.store.Update(ctx, meeting); err != nil {
		return services.Wrap(services.ErrTransient, "lifecycle", "persist summary", "", err)
	}
	if err := p.finishDone(ctx, logger, meeting); err != nil {
		return err
	}
	p.notifySummaryReady(ctx, logger, meeting)
	return nil
}

// completeFromMetadata finishes a meeting from the webhook's own metadata when
// the provider record cannot be fetched. A degraded done beats a meeting stuck
// in processing.
func (p *Processor) completeFromMetadata(ctx context.Context, logger *slog.Logger, meeting *store.Meeting, evt *store.WebhookEvent, fetchErr error) error {
	logger.Warn("bot record unavailable; falling back to webhook metadata",
		logging.Error(fetchErr),
		logging.Alert("bot_fetch_failed"),
		logging.String(logging.FieldEventType, "bot_fetch_failed"),
	)

	if payload, err := ParsePayload([]byte(evt.PayloadJSON)); err == nil && payload.Data.MeetingMetadata != nil {
		meta := payload.Data.MeetingMetadata
		title := strings.TrimSpace(meta.Title)
		if title == "" {
			title = fallbackTitle
		}
		meeting.Title = title
		if len(meta.Participants) > 0 {
			if encoded, err := json.Marshal(meta.Participants); err == nil {
				meeting.ParticipantsJSON = string(encoded)
			}
		}
	}

	meeting.ErrorMessage = fmt.Sprintf("bot data fetch failed: %s", strings.TrimSpace(fetchErr.Error()))
	if err := p.store.Update(ctx, meeting); err != nil {
		return services.Wrap(services.ErrTransient, "lifecycle", "persist metadata fallback", "", err)
	}
	return p.finishDone(ctx, logger, meeting)
}

// finishDone moves a processing meeting to done with a compare-and-set.
// Losing the race to another terminal writer is not an error.
func (p *Processor) finishDone(ctx context.Context, logger *slog.Logger, meeting *store.Meeting) error {
	moved, err := p.store.TransitionStatus(ctx, meeting.ID, store.StatusProcessing, store.StatusDone)
	if err != nil {
		return services.Wrap(services.ErrTransient, "lifecycle", "complete meeting", "", err)
	}
	if !moved {
		refreshed, err := p.store.GetByID(ctx, meeting.ID)
		if err != nil {
			return services.Wrap(services.ErrTransient, "lifecycle", "complete meeting", "", err)
		}
		if refreshed == nil || refreshed.Status.Terminal() {
			return nil
		}
		return services.Wrap(services.ErrTransient, "lifecycle", "complete meeting",
			fmt.Sprintf("meeting in %s, expected processing", refreshed.Status), nil)
	}
	meeting.Status = store.StatusDone

	logger.Info("meeting completed",
		logging.String(logging.FieldEventType, "meeting_done"),
		logging.String("title", meeting.Title),
		logging.String("meeting_duration", meeting.Duration),
		logging.Bool("has_transcript", meeting.HasTranscript()),
	)
	p.notifyMeetingCompleted(ctx, logger, meeting)
	return nil
}

func (p *Processor) handleError(ctx context.Context, evt *store.WebhookEvent) error {
	logger := logging.WithContext(ctx, p.logger)

	meeting, err := p.loadMeeting(ctx, evt)
	if err != nil {
		return err
	}
	if meeting.Status.Terminal() {
		logger.Debug("meeting already terminal; error event is a no-op",
			logging.String("status", string(meeting.Status)))
		return nil
	}

	message := "bot reported a fatal error"
	moved, err := p.store.MarkErrored(ctx, meeting.ID, message)
	if err != nil {
		return services.Wrap(services.ErrTransient, "lifecycle", "mark errored", "", err)
	}
	if moved {
		logger.Info("meeting marked errored from bot error event",
			logging.Alert("bot_error"),
			logging.String(logging.FieldEventType, "meeting_errored"),
		)
		if p.notifier != nil {
			contextLabel := fmt.Sprintf("meeting #%d", meeting.ID)
			if err := p.notifier.NotifyError(ctx, errors.New(message), contextLabel); err != nil {
				logger.Debug("bot error notification failed", logging.Error(err))
			}
		}
	}
	return nil
}

func (p *Processor) handleInformational(ctx context.Context, evt *store.WebhookEvent) error {
	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("informational event acknowledged",
		logging.String("kind", string(ParseEventKind(evt.Event))))
	return nil
}

func (p *Processor) notifyMeetingCompleted(ctx context.Context, logger *slog.Logger, meeting *store.Meeting) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyMeetingCompleted(ctx, meeting.Title, meeting.Duration); err != nil {
		logger.Debug("meeting completed notification failed", logging.Error(err))
	}
}

func (p *Processor) notifySummaryReady(ctx context.Context, logger *slog.Logger, meeting *store.Meeting) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifySummaryReady(ctx, meeting.Title); err != nil {
		logger.Debug("summary ready notification failed", logging.Error(err))
	}
}

func speechFromSegments(segments []recall.TranscriptSegment) []changeagent.Speech {
	speech := make([]changeagent.Speech, 0, len(segments))
	for _, segment := range segments {
		speech = append(speech, changeagent.Speech{Name: segment.Name, Words: segment.Words})
	}
	return speech
}
