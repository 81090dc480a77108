package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"gcm/internal/endpoint"
	"gcm/internal/logging"
)

// LockFileName is the single-instance lock inside the application directory.
const LockFileName = "gcmd.lock"

// Daemon accepts credential requests on the endpoint socket and relays each
// one to a Handler. Only one Daemon may hold a given application directory.
type Daemon struct {
	path    endpoint.Path
	handler Handler
	logger  *slog.Logger

	lockPath string
	lock     *flock.Flock

	owner int

	running  atomic.Bool
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Socket       string
	LockFilePath string
}

// LockPath returns the lock file used for the daemon serving path.
func LockPath(path endpoint.Path) string {
	return filepath.Join(path.Dir(), LockFileName)
}

// New constructs a daemon for path. Connections from other users are refused.
func New(path endpoint.Path, handler Handler, logger *slog.Logger) (*Daemon, error) {
	if path == "" || handler == nil {
		return nil, errors.New("daemon requires endpoint and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := LockPath(path)
	return &Daemon{
		path:     path,
		handler:  handler,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		owner:    -1,
	}, nil
}

// SetOwner hands the socket and application directory to uid and serves its
// connections. It is used when gcmd runs elevated on behalf of another user.
func (d *Daemon) SetOwner(uid int) {
	d.owner = uid
}

func (d *Daemon) allowedUIDs() []int {
	allowed := []int{os.Geteuid(), 0}
	if d.owner >= 0 {
		allowed = append(allowed, d.owner)
	}
	return allowed
}

// Start acquires the daemon lock, replaces any stale socket, and begins
// accepting connections until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.path.Dir(), 0o700); err != nil {
		return fmt.Errorf("create application directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gcmd instance is already running")
	}

	listener, err := listen(d.path)
	if err != nil {
		_ = d.lock.Unlock()
		return err
	}
	if err := d.chownToOwner(d.path.Dir(), d.path.String(), d.lockPath); err != nil {
		_ = listener.Close()
		_ = d.lock.Unlock()
		return err
	}

	serveCtx, cancel := context.WithCancel(ctx)
	d.listener = listener
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go d.acceptLoop(serveCtx)
	go func() {
		<-serveCtx.Done()
		_ = listener.Close()
	}()

	d.logger.Info("gcmd listening",
		logging.String(logging.FieldSocket, d.path.String()),
		logging.String("lock", d.lockPath))
	return nil
}

func listen(path endpoint.Path) (net.Listener, error) {
	if err := os.RemoveAll(path.String()); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path.String())
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path.String(), 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

// HandOver gives runtime files created beside the socket to the owner set by
// SetOwner, so the user's own gcmd can reuse them after an elevated run.
func (d *Daemon) HandOver(paths ...string) error {
	return d.chownToOwner(paths...)
}

func (d *Daemon) chownToOwner(paths ...string) error {
	if d.owner < 0 || d.owner == os.Geteuid() {
		return nil
	}
	for _, target := range paths {
		if err := os.Chown(target, d.owner, -1); err != nil {
			return fmt.Errorf("hand %s to uid %d: %w", target, d.owner, err)
		}
	}
	return nil
}

func (d *Daemon) acceptLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			d.logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "accept_failed"))
			continue
		}
		d.wg.Add(1)
		go func(c net.Conn) {
			defer d.wg.Done()
			d.serveConn(ctx, c)
		}(conn)
	}
}

func (d *Daemon) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := d.logger.With(logging.String(logging.FieldSessionID, uuid.NewString()))

	if err := authorizePeer(conn, d.allowedUIDs()); err != nil {
		logger.Warn("peer rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "peer_rejected"))
		return
	}

	req, err := ReadRequest(bufio.NewReader(conn))
	if err != nil {
		logger.Warn("malformed request",
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_invalid"))
		return
	}
	logger = logger.With(logging.String(logging.FieldVerb, req.Verb))
	logger.Debug("request received", logging.Int("body_bytes", len(req.Body)))

	if err := d.handler.Serve(ctx, req, conn); err != nil {
		logger.Warn("request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_failed"))
		return
	}
	logger.Debug("request served")
}

// Stop closes the listener, waits for in-flight connections, removes the
// socket, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.listener != nil {
		_ = d.listener.Close()
	}
	d.wg.Wait()
	d.listener = nil

	if err := os.RemoveAll(d.path.String()); err != nil {
		d.logger.Warn("failed to remove socket",
			logging.String(logging.FieldSocket, d.path.String()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "socket_cleanup_failed"))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("gcmd stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Socket:       d.path.String(),
		LockFilePath: d.lockPath,
	}
}

// Locked reports whether some process holds the daemon lock at lockPath.
func Locked(lockPath string) (bool, error) {
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
