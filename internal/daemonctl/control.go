package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/config"
	"github.com/avlowe/minute/internal/ipc"
	"github.com/avlowe/minute/internal/preflight"
	"github.com/avlowe/minute/internal/store"
)

// dialRetryInterval paces reconnect attempts while waiting on the daemon.
const dialRetryInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	Diagnostic bool
}

func (o LaunchOptions) args() []string {
	args := []string{"daemon", "run"}
	if socket := strings.TrimSpace(o.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfgPath := strings.TrimSpace(o.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if o.Diagnostic {
		args = append(args, "--diagnostic")
	}
	return args
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch spawns a detached minuted process via the "daemon run" subcommand.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	proc := exec.Command(executablePath, opts.args()...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// EnsureStarted launches and/or starts the daemon and returns the resulting state.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, launched, err := connectOrLaunch(socketPath, executablePath, opts, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	if status, statusErr := client.Status(); statusErr == nil && status != nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	return interpretStart(resp, launched), nil
}

// connectOrLaunch dials the daemon socket, spawning a fresh daemon process
// when nothing answers. Reports whether a launch happened.
func connectOrLaunch(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (*ipc.Client, bool, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		return client, false, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return nil, false, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return nil, false, err
	}
	return client, true, nil
}

// interpretStart maps the daemon's start reply onto a StartResult. An
// "already running" reply from a daemon this call just launched still counts
// as a fresh start from the caller's point of view.
func interpretStart(resp *ipc.StartResponse, launched bool) StartResult {
	if resp == nil {
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}
	case strings.EqualFold(message, "daemon already running"):
		state := StartStateAlreadyRunning
		if launched {
			state = StartStateStarted
		}
		return StartResult{State: state, Launched: launched, Message: message}
	case message != "":
		return StartResult{State: StartStateRequested, Launched: launched, Message: message}
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	var client *ipc.Client
	ok, lastErr := retryUntil(timeout, func() (bool, error) {
		conn, err := ipc.Dial(socketPath)
		if err != nil {
			return false, err
		}
		client = conn
		return true, nil
	})
	if ok {
		return client, nil
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	ok, lastErr := retryUntil(timeout, func() (bool, error) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if socketMissing(err) {
				return true, nil
			}
			return false, err
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr != nil {
			return false, statusErr
		}
		if !status.Running {
			return true, nil
		}
		return false, errors.New("daemon still running")
	})
	if ok {
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// retryUntil invokes step immediately and then every dialRetryInterval until
// step reports done or the timeout elapses. The second return value is the
// last error step produced.
func retryUntil(timeout time.Duration, step func() (bool, error)) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(dialRetryInterval)
	defer tick.Stop()

	var lastErr error
	for {
		done, err := step()
		if err != nil {
			lastErr = err
		}
		if done {
			return true, lastErr
		}
		select {
		case <-deadline.C:
			return false, lastErr
		case <-tick.C:
		}
	}
}

// StopAndTerminate requests daemon stop and force-kills the process if still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	var lockHint, dbHint string
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockHint = status.LockPath
		dbHint = status.DatabasePath
		pid = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if resp != nil {
		result.StopAcknowledged = resp.Stopped
	}

	_ = WaitForShutdown(socketPath, gracePeriod)
	if alive, livePID, aliveErr := ProcessInfo(socketPath); aliveErr == nil && alive {
		if livePID > 0 {
			pid = livePID
		}
		killed, killErr := terminate(cfg, socketPath, lockHint, dbHint, pid)
		if killErr != nil {
			return result, killErr
		}
		result.ForcedKill = true
		result.PID = killed
	}
	return result, nil
}

// terminate force-kills a daemon that survived its shutdown grace period,
// then clears the pid, lock, and socket files it left behind.
func terminate(cfg *config.Config, socketPath, lockHint, dbHint string, pid int) (int, error) {
	logDir := DeriveLogDir(cfg, socketPath)
	if logDir == "" {
		return 0, errors.New("unable to determine daemon log directory")
	}
	pidPath := filepath.Join(logDir, "minute.pid")
	killed, err := ForceKillProcess(pidPath, deriveLockPath(lockHint, dbHint, cfg), pid)
	if err != nil {
		return 0, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(socketPath)
	return killed, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// ForceKillProcess sends SIGKILL to daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	filePID, err := readPID(pidPath)
	if err != nil {
		return 0, err
	}
	if filePID > 0 {
		pid = filePID
	}
	switch {
	case pid <= 0:
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	case pid == os.Getpid():
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// readPID parses a daemon pid file. Missing or malformed files yield 0 with
// no error so callers can fall back to a pid learned over IPC.
func readPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if socketMissing(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	if status == nil {
		return true, 0, nil
	}
	return true, status.PID, nil
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks for
// meeting stats and readiness checks when the daemon is unreachable.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		st, openErr := store.Open(cfg)
		if openErr == nil {
			if stats, statsErr := st.Stats(queryCtx); statsErr == nil {
				statusResp.MeetingStats = api.MergeMeetingStats(stats)
			}
			if stats, statsErr := st.EventStats(queryCtx); statsErr == nil {
				statusResp.EventStats = api.MergeEventStats(stats)
			}
			_ = st.Close()
		}
		if strings.TrimSpace(statusResp.DatabasePath) == "" {
			statusResp.DatabasePath = cfg.DatabasePath()
		}
	}

	if len(statusResp.Checks) == 0 {
		statusResp.Checks = ResolveChecks(cfg)
	}
	return statusResp, nil
}

// DeriveLogDir determines the daemon log directory from config and socket hints.
// The pid file and socket live in the log directory while the lock file sits
// alongside the database in the data directory.
func DeriveLogDir(cfg *config.Config, socketPath string) string {
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	if strings.TrimSpace(socketPath) != "" {
		return filepath.Dir(socketPath)
	}
	return ""
}

func deriveLockPath(statusLockPath, databasePath string, cfg *config.Config) string {
	if strings.TrimSpace(statusLockPath) != "" {
		return statusLockPath
	}
	if strings.TrimSpace(databasePath) != "" {
		return filepath.Join(filepath.Dir(databasePath), "minuted.lock")
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.DataDir) != "" {
		return filepath.Join(cfg.Paths.DataDir, "minuted.lock")
	}
	return ""
}

// ResolveChecks runs offline readiness checks for status output.
func ResolveChecks(cfg *config.Config) []ipc.ReadinessCheck {
	if cfg == nil {
		return nil
	}
	results := preflight.RuntimeChecks(cfg)
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

func socketMissing(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, os.ErrNotExist)
}

func isDaemonUnavailable(err error) bool {
	return socketMissing(err) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
