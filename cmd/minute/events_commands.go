package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Manage webhook event processing",
	}

	eventsCmd.AddCommand(newEventsListCommand(ctx))
	eventsCmd.AddCommand(newEventsRetryCommand(ctx))

	return eventsCmd
}

func newEventsListCommand(ctx *commandContext) *cobra.Command {
	var listStatus string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued webhook events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				events, err := meetings.ListEvents(cmd.Context(), listStatus)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"events": events})
				}
				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintf(out, "No %s events\n", listStatus)
					return nil
				}
				table := renderTable(
					[]string{"ID", "Bot", "Event", "Status", "Attempts", "Error"},
					buildEventListRows(events),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&listStatus, "status", "s", "pending", "Event status to list (pending, processing, done, failed)")
	return cmd
}

func newEventsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [eventID...]",
		Short: "Requeue failed webhook events",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withMeetings(func(meetings meetingsAPI) error {
				updated, err := meetings.RetryEvents(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"updated": updated})
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintf(out, "Retried %d failed events\n", updated)
					return nil
				}
				fmt.Fprintf(out, "Requeued %d of %d events\n", updated, len(ids))
				return nil
			})
		},
	}
}
