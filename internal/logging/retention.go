package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogSweep names one directory glob to prune. Keep spares the live file the
// daemon is currently writing.
type LogSweep struct {
	Dir  string
	Glob string
	Keep string
}

// PruneLogs deletes swept files older than retentionDays. A retentionDays
// value of 0 disables pruning.
func PruneLogs(logger *slog.Logger, retentionDays int, sweeps ...LogSweep) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, sweep := range sweeps {
		pruneDir(logger, sweep, cutoff)
	}
}

func pruneDir(logger *slog.Logger, sweep LogSweep, cutoff time.Time) {
	dir := strings.TrimSpace(sweep.Dir)
	if dir == "" {
		return
	}
	keep := strings.TrimSpace(sweep.Keep)
	if keep != "" {
		if abs, err := filepath.Abs(keep); err == nil {
			keep = abs
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if glob := strings.TrimSpace(sweep.Glob); glob != "" {
			matched, err := filepath.Match(glob, entry.Name())
			if err != nil || !matched {
				continue
			}
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if keep != "" && path == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}
