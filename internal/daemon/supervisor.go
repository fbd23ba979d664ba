package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// Supervisor manages the background watch+RPC process through a pidfile
// guarded by an advisory file lock, so two `start` invocations racing
// against the same pidfile never both believe they won.
type Supervisor struct {
	pidFile  *PIDFile
	lockPath string
}

// NewSupervisor returns a Supervisor whose pidfile lives at pidPath.
func NewSupervisor(pidPath string) *Supervisor {
	return &Supervisor{
		pidFile:  NewPIDFile(pidPath),
		lockPath: pidPath + ".lock",
	}
}

// IsRunning reports whether the recorded pid is alive.
func (s *Supervisor) IsRunning() bool {
	return s.pidFile.IsRunning()
}

// Pid returns the recorded pid, or 0 if none is recorded or it is stale.
func (s *Supervisor) Pid() int {
	if !s.pidFile.IsRunning() {
		return 0
	}
	pid, err := s.pidFile.Read()
	if err != nil {
		return 0
	}
	return pid
}

// Start re-executes execPath with args in the background, detached from
// the current session, and records its pid. Idempotent: if a live process
// is already recorded, Start returns its pid without spawning another.
func (s *Supervisor) Start(execPath string, args []string) (int, error) {
	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquire supervisor lock: %w", err)
	}
	defer lock.Unlock()

	if s.pidFile.IsRunning() {
		pid, err := s.pidFile.Read()
		if err != nil {
			return 0, err
		}
		return pid, nil
	}

	cmd := exec.Command(execPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn background process: %w", err)
	}

	// Detach: the supervisor does not wait on the child, only records it.
	go func() { _ = cmd.Wait() }()

	if err := os.MkdirAll(filepath.Dir(s.pidFile.Path()), 0o755); err != nil {
		return 0, fmt.Errorf("write pidfile: %w", err)
	}
	if err := os.WriteFile(s.pidFile.Path(), []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		return 0, fmt.Errorf("write pidfile: %w", err)
	}

	return cmd.Process.Pid, nil
}

// Stop sends SIGTERM to the recorded process and waits up to timeout for
// it to exit, escalating to SIGKILL if it doesn't.
func (s *Supervisor) Stop(timeout time.Duration) error {
	if !s.pidFile.IsRunning() {
		_ = s.pidFile.Remove()
		return nil
	}

	if err := s.pidFile.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !s.pidFile.IsRunning() {
			return s.pidFile.Remove()
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := s.pidFile.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill process: %w", err)
	}
	return s.pidFile.Remove()
}

// Restart stops any running process, then starts a fresh one.
func (s *Supervisor) Restart(execPath string, args []string, stopTimeout time.Duration) (int, error) {
	if err := s.Stop(stopTimeout); err != nil {
		return 0, err
	}
	return s.Start(execPath, args)
}

// RecordSelf writes the current process's pid, for use by the foreground
// process itself (the watch command calls this once its store is open,
// before the startup reconcile and before the live watcher is created).
func (s *Supervisor) RecordSelf() error {
	return s.pidFile.Write()
}

// ReleaseSelf removes the pidfile on graceful foreground shutdown.
func (s *Supervisor) ReleaseSelf() error {
	return s.pidFile.Remove()
}

// WaitUntilHealthy polls fn until it reports true or attempts are exhausted,
// sleeping interval between tries. Used after Start to confirm the child's
// RPC server came up before reporting success to the caller.
func WaitUntilHealthy(attempts int, interval time.Duration, fn func() bool) bool {
	for i := 0; i < attempts; i++ {
		if fn() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// CurrentExecutable resolves the path to the running binary, used by Start
// to re-exec itself in foreground mode as the background daemon.
func CurrentExecutable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	return path, nil
}
