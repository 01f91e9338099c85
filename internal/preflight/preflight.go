package preflight

import (
	"context"

	"github.com/avlowe/minute/internal/config"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable readiness check, including network
// probes against the configured services. Checks for optional features
// are only run when the feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	results = append(results, CheckRecall(ctx, cfg.Recall.BaseURL, cfg.Recall.APIKey))

	if cfg.ChangeAgent.Enabled {
		results = append(results, CheckChangeAgent(ctx, cfg.ChangeAgent.BaseURL, cfg.ChangeAgent.APIKey))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
