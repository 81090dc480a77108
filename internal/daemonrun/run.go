package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"gcm/internal/config"
	"gcm/internal/daemon"
	"gcm/internal/deps"
	"gcm/internal/endpoint"
	"gcm/internal/logging"
)

const (
	// LogFileName is the daemon log inside the application directory.
	LogFileName = "gcmd.log"
	// PIDFileName records the running daemon's pid.
	PIDFileName = "gcmd.pid"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level from the configuration when set.
	LogLevel string
	// Owner, when positive, is the uid gcmd serves on behalf of while running
	// elevated.
	Owner int
	// Ready is called once the socket is accepting connections.
	Ready func(*daemon.Daemon)
}

// LogPath returns the daemon log file for the application directory.
func LogPath(appDir string) string {
	return filepath.Join(appDir, LogFileName)
}

// PIDPath returns the daemon pid file for the application directory.
func PIDPath(appDir string) string {
	return filepath.Join(appDir, PIDFileName)
}

// Run starts gcmd on path and blocks until cmdCtx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, path endpoint.Path, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = strings.ToLower(level)
	}

	appDir := path.Dir()
	logger, closer, err := logging.NewFromConfig(&runCfg, LogPath(appDir))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()
	logger = logging.NewComponentLogger(logger, "gcmd")

	logDependencySnapshot(logger, &runCfg)

	handler, err := daemon.NewHelperHandler(runCfg.Daemon.Helper)
	if err != nil {
		return fmt.Errorf("configure helper: %w", err)
	}

	d, err := daemon.New(path, handler, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if opts.Owner > 0 {
		d.SetOwner(opts.Owner)
	}
	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"))
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Close()

	pidPath := PIDPath(appDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)
	if err := d.HandOver(LogPath(appDir), pidPath); err != nil {
		return err
	}

	if opts.Ready != nil {
		opts.Ready(d)
	}

	<-signalCtx.Done()
	logger.Info("gcmd shutting down")
	return nil
}

// ReadPID returns the pid recorded for the application directory, or zero.
func ReadPID(appDir string) int {
	data, err := os.ReadFile(PIDPath(appDir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o600)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	self, _ := os.Executable()
	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg, self)) {
		attrs := []any{
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
		}
		if status.Detail != "" {
			attrs = append(attrs, logging.String("detail", status.Detail))
		}
		if status.Available {
			logger.Info("dependency snapshot", attrs...)
		} else {
			logger.Warn("dependency unavailable", attrs...)
		}
	}
}
