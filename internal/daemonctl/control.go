package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gcm/internal/endpoint"
	"gcm/internal/logging"
)

// DefaultGracePeriod is how long EnsureRunning waits after spawning the daemon.
const DefaultGracePeriod = time.Second

// ErrDaemonNotRunning indicates the daemon endpoint is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	// Executable is the absolute path of the daemon binary.
	Executable string
	// Dir is the daemon's working directory.
	Dir string
}

// ResolveLaunchOptions locates the daemon binary called name inside dir. An
// empty dir means the directory holding the running executable.
func ResolveLaunchOptions(dir, name string) (LaunchOptions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return LaunchOptions{}, errors.New("resolve daemon: executable name is empty")
	}
	if strings.TrimSpace(dir) == "" {
		self, err := os.Executable()
		if err != nil {
			return LaunchOptions{}, fmt.Errorf("resolve executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
		dir = filepath.Dir(self)
	}
	return LaunchOptions{Executable: filepath.Join(dir, name), Dir: dir}, nil
}

// Launch starts a detached daemon process with no arguments and the caller's
// environment. It does not wait for the daemon to become ready.
func Launch(opts LaunchOptions) error {
	if strings.TrimSpace(opts.Executable) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	proc := exec.Command(opts.Executable)
	proc.Dir = opts.Dir
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// Launcher bootstraps the daemon after a failed connection attempt.
type Launcher struct {
	Options     LaunchOptions
	GracePeriod time.Duration
	Logger      *slog.Logger
	// Start spawns the daemon; nil means Launch.
	Start func(LaunchOptions) error
}

// NewLauncher returns a Launcher using Launch and the given grace period.
func NewLauncher(opts LaunchOptions, gracePeriod time.Duration, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Launcher{Options: opts, GracePeriod: gracePeriod, Logger: logger}
}

// EnsureRunning spawns the daemon, sleeps the grace period, and returns
// unconditionally. Spawn failures are only traced: the caller learns about
// them when its reconnect fails.
func (l *Launcher) EnsureRunning(ctx context.Context, path endpoint.Path) {
	logger := l.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	start := l.Start
	if start == nil {
		start = Launch
	}

	logger.Debug("starting daemon",
		logging.String("executable", l.Options.Executable),
		logging.String(logging.FieldSocket, path.String()))
	if err := start(l.Options); err != nil {
		logger.Debug("daemon launch failed", logging.Error(err))
	}

	if l.GracePeriod <= 0 {
		return
	}
	timer := time.NewTimer(l.GracePeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Reachable reports whether a daemon is accepting connections at path.
func Reachable(path endpoint.Path) (bool, error) {
	conn, err := net.Dial("unix", path.String())
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, nil
		}
		return false, err
	}
	_ = conn.Close()
	return true, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
