package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/daemonctl"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the minute daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the minute daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping event workers...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusProbe bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, meeting, and event status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if statusProbe && cfg != nil {
				statusResp.Checks = probeChecks(cmd.Context(), cfg)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemStatusLines(cfg, statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Readiness", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range readinessLines(statusResp.Checks, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Meetings", colorize) {
				fmt.Fprintln(stdout, line)
			}
			meetingRows := buildStatusCountRows(statusResp.MeetingStats)
			if len(meetingRows) == 0 {
				fmt.Fprintln(stdout, "No meetings tracked")
			} else {
				fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, meetingRows, []columnAlignment{alignLeft, alignRight}))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Webhook Events", colorize) {
				fmt.Fprintln(stdout, line)
			}
			eventRows := buildStatusCountRows(statusResp.EventStats)
			if len(eventRows) == 0 {
				fmt.Fprintln(stdout, "No webhook events recorded")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, eventRows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusProbe, "probe", false, "Probe Recall, summarizer, and ntfy connectivity instead of configuration-only checks")

	var restartDiagnostic bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the minute daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartDiagnostic),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func systemStatusLines(cfg *config.Config, status *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 5)
	if status.Running {
		lines = append(lines, renderStatusLine("Minute", statusOK, "Running", colorize))
		if status.PID > 0 {
			lines = append(lines, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Minute", statusWarn, "Not running (run `minute start`)", colorize))
	}
	if cfg != nil {
		if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
			lines = append(lines, renderStatusLine("HTTP API", statusOK, bind, colorize))
		} else {
			lines = append(lines, renderStatusLine("HTTP API", statusInfo, "Disabled", colorize))
		}
		if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
			lines = append(lines, renderStatusLine("Notifications", statusOK, "Configured", colorize))
		} else {
			lines = append(lines, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
		}
	}
	if lastError := strings.TrimSpace(status.LastError); lastError != "" {
		lines = append(lines, renderStatusLine("Last Error", statusError, lastError, colorize))
	}
	return lines
}

// probeChecks runs the live collaborator probes instead of the cheap
// configuration checks the daemon reports.
func probeChecks(ctx context.Context, cfg *config.Config) []ipc.ReadinessCheck {
	results := preflight.RunAll(ctx, cfg)
	checks := make([]ipc.ReadinessCheck, 0, len(results))
	for _, result := range results {
		checks = append(checks, ipc.ReadinessCheck{
			Name:   result.Name,
			Ready:  result.Passed,
			Detail: result.Detail,
		})
	}
	return checks
}

func readinessLines(checks []ipc.ReadinessCheck, colorize bool) []string {
	if len(checks) == 0 {
		return []string{renderStatusLine("Checks", statusInfo, "No readiness checks available", colorize)}
	}
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		detail := strings.TrimSpace(check.Detail)
		if check.Ready {
			if detail == "" {
				detail = "Ready"
			}
		} else {
			kind = statusWarn
			if detail == "" {
				detail = "Not ready"
			}
		}
		lines = append(lines, renderStatusLine(check.Name, kind, detail, colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
