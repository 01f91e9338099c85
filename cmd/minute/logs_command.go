package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/logs"
	"github.com/avlowe/minute/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var component string
	var meetingID int64
	var botID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			apiClient, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}

			legacy := &lazyTailClient{ctx: ctx}
			defer legacy.Close()

			out := cmd.OutOrStdout()
			printed, err := logstream.Stream(cmd.Context(), apiClient, legacy,
				logstream.Options{
					Lines:  lines,
					Follow: follow,
					Filters: logstream.Filters{
						Component: component,
						MeetingID: meetingID,
						BotID:     botID,
					},
				},
				func(evt api.LogEvent) { fmt.Fprintln(out, formatLogEvent(evt)) },
				func(line string) { fmt.Fprintln(out, line) },
			)
			if err != nil {
				if errors.Is(err, logstream.ErrFiltersRequireAPI) {
					return errors.New("log filters need the HTTP API; set paths.api_bind and restart the daemon")
				}
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries from one component")
	cmd.Flags().Int64Var(&meetingID, "meeting", 0, "Only show entries for one meeting id")
	cmd.Flags().StringVar(&botID, "bot", "", "Only show entries for one bot id")
	return cmd
}

// lazyTailClient defers the IPC dial until API streaming has actually failed,
// so a reachable HTTP API never requires the daemon socket.
type lazyTailClient struct {
	ctx    *commandContext
	client *ipc.Client
}

func (l *lazyTailClient) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	if l.client == nil {
		client, err := l.ctx.dialClient()
		if err != nil {
			return nil, err
		}
		l.client = client
	}
	return l.client.LogTail(req)
}

func (l *lazyTailClient) Close() {
	if l.client != nil {
		_ = l.client.Close()
		l.client = nil
	}
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	subject := composeSubject(evt.MeetingID, evt.BotID)
	line := strings.Join(parts, " ")
	if subject != "" {
		line += " " + subject
	}
	message := strings.TrimSpace(evt.Message)
	if message != "" {
		line += " - " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeSubject(meetingID int64, botID string) string {
	botID = strings.TrimSpace(botID)
	switch {
	case meetingID > 0 && botID != "":
		return fmt.Sprintf("Meeting #%d (bot %s)", meetingID, botID)
	case meetingID > 0:
		return fmt.Sprintf("Meeting #%d", meetingID)
	case botID != "":
		return fmt.Sprintf("Bot %s", botID)
	default:
		return ""
	}
}
