package main

import (
	"github.com/spf13/cobra"

	"github.com/avlowe/minute/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Daemon process controls (internal)",
		Hidden:      true,
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the minute daemon in the foreground",
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx.diagnostic = &diagnostic
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.resolvedLogLevel(cfg),
				Development: ctx.diagnosticMode(),
				Diagnostic:  ctx.diagnosticMode(),
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	return cmd
}
