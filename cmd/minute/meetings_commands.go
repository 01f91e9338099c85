package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newMeetingsCommand(ctx *commandContext) *cobra.Command {
	meetingsCmd := &cobra.Command{
		Use:   "meetings",
		Short: "Inspect and manage tracked meetings",
	}

	meetingsCmd.AddCommand(newMeetingsListCommand(ctx))
	meetingsCmd.AddCommand(newMeetingsShowCommand(ctx))
	meetingsCmd.AddCommand(newMeetingsRemoveCommand(ctx))
	meetingsCmd.AddCommand(newMeetingsHealthCommand(ctx))

	return meetingsCmd
}

func newMeetingsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				records, err := meetings.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"meetings": records})
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No meetings tracked")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Scheduled", "Bot"},
					buildMeetingListRows(records),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by meeting status (repeatable)")
	return cmd
}

func newMeetingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meetingID>",
		Short: "Show details for one meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				meeting, err := meetings.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if meeting == nil {
					return fmt.Errorf("meeting %d not found", ids[0])
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, meeting)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID: %d\n", meeting.ID)
				fmt.Fprintf(out, "Title: %s\n", meeting.Title)
				fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(meeting.Status))
				fmt.Fprintf(out, "Meeting URL: %s\n", meeting.MeetingURL)
				if meeting.BotID != "" {
					fmt.Fprintf(out, "Bot: %s\n", meeting.BotID)
				}
				if meeting.ScheduledTime != "" {
					fmt.Fprintf(out, "Scheduled: %s\n", formatDisplayTime(meeting.ScheduledTime))
				}
				if meeting.Duration != "" {
					fmt.Fprintf(out, "Duration: %s\n", meeting.Duration)
				}
				if meeting.UserID != nil {
					fmt.Fprintf(out, "Owner: user %d\n", *meeting.UserID)
				}
				fmt.Fprintf(out, "Transcript: %s\n", yesNo(len(meeting.Transcript) > 0))
				fmt.Fprintf(out, "Participants: %s\n", yesNo(len(meeting.Participants) > 0))
				fmt.Fprintf(out, "Summary: %s\n", yesNo(len(meeting.Summary) > 0))
				if meeting.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", meeting.ErrorMessage)
				}
				if meeting.CreatedAt != "" {
					fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(meeting.CreatedAt))
				}
				if meeting.UpdatedAt != "" {
					fmt.Fprintf(out, "Updated: %s\n", formatDisplayTime(meeting.UpdatedAt))
				}
				return nil
			})
		},
	}
}

func newMeetingsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <meetingID...>",
		Aliases: []string{"remove"},
		Short:   "Remove meetings and their dependent records",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				removed, err := meetings.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d of %d meetings\n", removed, len(ids))
				if removed < int64(len(ids)) {
					fmt.Fprintln(out, "Some ids were not found")
				}
				return nil
			})
		},
	}
}

func newMeetingsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show meeting and event queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				health, err := meetings.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nScheduled: %d\nIn Progress: %d\nProcessing: %d\nDone: %d\nErrored: %d\nPending events: %d\nFailed events: %d\n",
					health.Total,
					health.Scheduled,
					health.InProgress,
					health.Processing,
					health.Done,
					health.Errored,
					health.PendingEvents,
					health.FailedEvents,
				)
				return nil
			})
		},
	}
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
