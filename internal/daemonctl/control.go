package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"archivist/internal/ipc"
)

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath  string
	LogLevel    string
	Development bool
}

// Args returns the argv tail passed to the executable.
func (o LaunchOptions) Args() []string {
	args := []string{"daemon"}
	if cfg := strings.TrimSpace(o.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(o.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	if o.Development {
		args = append(args, "--dev")
	}
	return args
}

// StartResult captures daemon start orchestration state.
type StartResult struct {
	AlreadyRunning bool
	PID            int
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	proc := exec.Command(executablePath, opts.Args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless its socket already answers.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		result := StartResult{AlreadyRunning: true}
		if status, err := client.Status(); err == nil && status != nil {
			result.PID = status.PID
		}
		return result, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()
	var result StartResult
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits until the daemon socket stops accepting connections.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			return nil
		}
		_ = client.Close()
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// ReadPID returns the pid recorded in pidPath, or 0 when absent.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed: %q", pidPath, text)
	}
	return pid, nil
}

// Alive reports whether pid names a live process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Stop sends SIGTERM to the daemon and waits for its socket to close,
// escalating to SIGKILL after gracePeriod.
func Stop(socketPath, pidPath string, gracePeriod time.Duration) (StopResult, error) {
	pid := 0
	if client, err := ipc.Dial(socketPath); err == nil {
		if status, statusErr := client.Status(); statusErr == nil && status != nil {
			pid = status.PID
		}
		_ = client.Close()
	}
	if pid == 0 {
		filePID, err := ReadPID(pidPath)
		if err != nil {
			return StopResult{}, err
		}
		pid = filePID
	}
	if pid == 0 || !Alive(pid) {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if err := WaitForShutdown(socketPath, gracePeriod); err == nil && waitExit(pid, gracePeriod) {
		return result, nil
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	return result, nil
}

func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !Alive(pid)
}
