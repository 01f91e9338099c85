package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/daemon"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/lifecycle"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/notifications"
	"github.com/avlowe/minute/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the minute daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("minute-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("minute-%s.events", runID))
	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
	}

	var sessionID string
	var debugLogPath string
	if opts.Diagnostic {
		sessionID = uuid.NewString()
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, fmt.Sprintf("minute-%s.log", runID))
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = slog.New(logging.StreamHandler(logger.Handler(), logHub))

	if opts.Diagnostic {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			if err := ensureCurrentLogPointer(filepath.Join(cfg.Paths.LogDir, "debug"), debugLogPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update debug/minute.log link: %v\n", err)
			}
		}
		logger = logging.WithSessionID(logger, sessionID)
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	logServiceSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update minute.log link: %v\n", err)
	}
	logging.PruneLogs(logger, cfg.Logging.RetentionDays,
		logging.LogSweep{Dir: cfg.Paths.LogDir, Glob: "minute-*.log", Keep: logPath},
		logging.LogSweep{Dir: cfg.Paths.LogDir, Glob: "minute-*.events", Keep: eventsPath},
		logging.LogSweep{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Glob: "minute-*.log", Keep: debugLogPath},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, "minute.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open meeting store", logging.Error(err))
		return err
	}
	defer st.Close()

	notifier := notifications.NewService(cfg)
	manager := lifecycle.NewManagerWithNotifier(cfg, st, logger, notifier)

	d, err := daemon.New(cfg, st, logger, manager, logPath, logHub, eventArchive, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	processor := lifecycle.NewProcessor(st, d.Provider(), d.Summarizer(), notifier, logger)
	manager.Configure(processor, d.Provider())

	socketPath := filepath.Join(cfg.Paths.LogDir, "minute.sock")
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and meeting database access"),
			logging.String(logging.FieldImpact, "daemon may not process webhook events"),
		)
	}

	<-signalCtx.Done()
	logger.Info("minute daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "minute.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logServiceSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("service snapshot",
		logging.String(logging.FieldEventType, "service_snapshot"),
		logging.Bool("recall_key_present", strings.TrimSpace(cfg.Recall.APIKey) != ""),
		logging.String("recall_base_url", strings.TrimSpace(cfg.Recall.BaseURL)),
		logging.Bool("webhook_url_present", strings.TrimSpace(cfg.Recall.WebhookURL) != ""),
		logging.Bool("summarizer_remote", cfg.ChangeAgent.Enabled && strings.TrimSpace(cfg.ChangeAgent.APIKey) != ""),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("jwt_issuance_enabled", strings.TrimSpace(cfg.Auth.JWTSecret) != ""),
		logging.String("api_bind", strings.TrimSpace(cfg.Paths.APIBind)),
	)
}
