package preflight

import (
	"strings"

	"github.com/avlowe/minute/internal/config"
)

// RuntimeChecks evaluates readiness from configuration and the local
// filesystem only. The daemon reports these on every status call, so
// they must never touch the network; RunAll covers connectivity.
func RuntimeChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		checkRecallConfigured(cfg),
		checkSummarizerMode(cfg),
		checkNotificationsMode(cfg),
		checkAuthMode(cfg),
	}
	return results
}

func checkRecallConfigured(cfg *config.Config) Result {
	const name = "Recall API key"
	if strings.TrimSpace(cfg.Recall.APIKey) == "" {
		return Result{Name: name, Detail: "Missing"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

// checkSummarizerMode reports which summarizer will run. Local mode is a
// supported configuration, not a failure.
func checkSummarizerMode(cfg *config.Config) Result {
	const name = "Summarizer"
	if !cfg.ChangeAgent.Enabled {
		return Result{Name: name, Passed: true, Detail: "Local placeholder"}
	}
	if strings.TrimSpace(cfg.ChangeAgent.APIKey) == "" {
		return Result{Name: name, Detail: "Enabled but API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "Remote (" + cfg.ChangeAgent.BaseURL + ")"}
}

func checkNotificationsMode(cfg *config.Config) Result {
	const name = "Notifications"
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy (" + cfg.Notifications.NtfyTopic + ")"}
}

func checkAuthMode(cfg *config.Config) Result {
	const name = "API authentication"
	token := strings.TrimSpace(cfg.Paths.APIToken)
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	switch {
	case token == "":
		return Result{Name: name, Passed: true, Detail: "Open (no token configured)"}
	case secret == "":
		return Result{Name: name, Passed: true, Detail: "Static token"}
	default:
		return Result{Name: name, Passed: true, Detail: "Static token + session JWTs"}
	}
}
