package daemonctl_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"archivist/internal/daemonctl"
)

func TestLaunchOptionsArgs(t *testing.T) {
	opts := daemonctl.LaunchOptions{ConfigPath: " /etc/archivist.toml ", LogLevel: "debug", Development: true}
	require.Equal(t, []string{"daemon", "--config", "/etc/archivist.toml", "--log-level", "debug", "--dev"}, opts.Args())
	require.Equal(t, []string{"daemon"}, daemonctl.LaunchOptions{}.Args())
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	pid, err := daemonctl.ReadPID(filepath.Join(dir, "missing.pid"))
	require.NoError(t, err)
	require.Zero(t, pid)

	path := filepath.Join(dir, "archivistd.pid")
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0o644))
	pid, err = daemonctl.ReadPID(path)
	require.NoError(t, err)
	require.Equal(t, 4242, pid)

	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err = daemonctl.ReadPID(path)
	require.Error(t, err)
}

func TestStopWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	_, err := daemonctl.Stop(filepath.Join(dir, "archivist.sock"), filepath.Join(dir, "archivistd.pid"), time.Second)
	require.ErrorIs(t, err, daemonctl.ErrDaemonNotRunning)
}

func TestStopTerminatesProcess(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep binary unavailable")
	}
	proc := exec.Command(sleep, "30")
	require.NoError(t, proc.Start())
	exited := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(exited)
	}()

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "archivistd.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(proc.Process.Pid)), 0o644))
	require.True(t, daemonctl.Alive(proc.Process.Pid))

	result, err := daemonctl.Stop(filepath.Join(dir, "archivist.sock"), pidPath, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, proc.Process.Pid, result.PID)

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
}
