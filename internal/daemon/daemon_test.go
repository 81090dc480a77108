package daemon_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gcm/internal/daemon"
	"gcm/internal/endpoint"
	"gcm/internal/ipc"
	"gcm/internal/testsupport"
)

type recordingHandler struct {
	mu       sync.Mutex
	requests []daemon.Request
	reply    string
}

func (h *recordingHandler) Serve(_ context.Context, req daemon.Request, out io.Writer) error {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	h.mu.Unlock()
	_, err := io.WriteString(out, h.reply)
	return err
}

func startDaemon(t *testing.T, handler daemon.Handler) (*daemon.Daemon, endpoint.Path) {
	t.Helper()
	path := testsupport.Endpoint(t, testsupport.NewIdentity(t))
	d, err := daemon.New(path, handler, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, path
}

func TestDaemonRelaysRequest(t *testing.T) {
	handler := &recordingHandler{reply: "username=alice\npassword=s3cret\n"}
	_, path := startDaemon(t, handler)

	var out bytes.Buffer
	in := strings.NewReader("protocol=https\nhost=example.com\n\n")
	if err := ipc.NewClient(path).Exchange(context.Background(), "get", in, &out); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if out.String() != handler.reply {
		t.Fatalf("expected reply %q, got %q", handler.reply, out.String())
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(handler.requests))
	}
	req := handler.requests[0]
	if req.Verb != "get" || string(req.Body) != "protocol=https\nhost=example.com\n" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestDaemonSecuresSocketAndDirectory(t *testing.T) {
	_, path := startDaemon(t, &recordingHandler{})

	info, err := os.Stat(path.String())
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if info.Mode().Type()&os.ModeSocket == 0 {
		t.Fatalf("expected socket, got mode %v", info.Mode())
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected socket mode 0600, got %o", perm)
	}
	dirInfo, err := os.Stat(path.Dir())
	if err != nil {
		t.Fatalf("stat app dir: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Fatalf("expected app dir mode 0700, got %o", perm)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	first, path := startDaemon(t, &recordingHandler{})

	second, err := daemon.New(path, &recordingHandler{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail to start")
	}

	locked, err := daemon.Locked(first.Status().LockFilePath)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if !locked {
		t.Fatal("expected lock to be held by running daemon")
	}
}

func TestDaemonReplacesStaleSocket(t *testing.T) {
	path := testsupport.Endpoint(t, testsupport.NewIdentity(t))
	if err := os.MkdirAll(path.Dir(), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path.String(), []byte("stale"), 0o600); err != nil {
		t.Fatalf("write stale socket: %v", err)
	}

	d, err := daemon.New(path, &recordingHandler{reply: "ok\n"}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	var out bytes.Buffer
	if err := ipc.NewClient(path).Exchange(context.Background(), "get", strings.NewReader(""), &out); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if out.String() != "ok\n" {
		t.Fatalf("unexpected reply %q", out.String())
	}
}

func TestDaemonStopCleansUp(t *testing.T) {
	d, path := startDaemon(t, &recordingHandler{})
	status := d.Status()
	if !status.Running || status.Socket != path.String() || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}

	d.Stop()

	if _, err := os.Stat(path.String()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, got %v", err)
	}
	locked, err := daemon.Locked(status.LockFilePath)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if locked {
		t.Fatal("expected lock released")
	}
	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestDaemonStopsWhenContextCancelled(t *testing.T) {
	path := testsupport.Endpoint(t, testsupport.NewIdentity(t))
	d, err := daemon.New(path, &recordingHandler{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	d.Stop()

	if _, err := os.Stat(path.String()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, got %v", err)
	}
}

func TestLockPathInAppDir(t *testing.T) {
	path := endpoint.Path("/home/alice/.gcm/.pipe")
	if got := daemon.LockPath(path); got != filepath.Join("/home/alice/.gcm", daemon.LockFileName) {
		t.Fatalf("unexpected lock path %q", got)
	}
}

func TestNewRequiresHandler(t *testing.T) {
	if _, err := daemon.New("/tmp/x/.pipe", nil, nil); err == nil {
		t.Fatal("expected error without handler")
	}
}

func TestReadRequest(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		verb    string
		body    string
		wantErr bool
	}{
		{name: "terminated", input: "get\nprotocol=https\nhost=x\n\nignored\n", verb: "get", body: "protocol=https\nhost=x\n"},
		{name: "eof", input: "store\nusername=alice", verb: "store", body: "username=alice"},
		{name: "verb only", input: "erase\n", verb: "erase"},
		{name: "verb without newline", input: "erase", verb: "erase"},
		{name: "crlf verb", input: "get\r\n\n", verb: "get"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank verb", input: "\nhost=x\n", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := daemon.ReadRequest(bufio.NewReader(strings.NewReader(tc.input)))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadRequest: %v", err)
			}
			if req.Verb != tc.verb || string(req.Body) != tc.body {
				t.Fatalf("got verb %q body %q, want %q %q", req.Verb, req.Body, tc.verb, tc.body)
			}
		})
	}
}

func TestHelperHandlerRunsCommandWithVerb(t *testing.T) {
	script := filepath.Join(testsupport.ShortTempDir(t), "helper")
	testsupport.WriteScript(t, script, "echo \"verb=$2 mode=$1\"\ncat\n")

	handler, err := daemon.NewHelperHandler([]string{script, "--file"})
	if err != nil {
		t.Fatalf("NewHelperHandler: %v", err)
	}
	var out bytes.Buffer
	req := daemon.Request{Verb: "get", Body: []byte("host=example.com\n")}
	if err := handler.Serve(context.Background(), req, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if out.String() != "verb=get mode=--file\nhost=example.com\n" {
		t.Fatalf("unexpected helper output %q", out.String())
	}
}

func TestHelperHandlerReportsFailure(t *testing.T) {
	script := filepath.Join(testsupport.ShortTempDir(t), "helper")
	testsupport.WriteScript(t, script, "echo 'store locked' >&2\nexit 3\n")

	handler, err := daemon.NewHelperHandler([]string{script})
	if err != nil {
		t.Fatalf("NewHelperHandler: %v", err)
	}
	err = handler.Serve(context.Background(), daemon.Request{Verb: "store"}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "store locked") {
		t.Fatalf("expected helper stderr in error, got %v", err)
	}
}

func TestNewHelperHandlerRejectsEmpty(t *testing.T) {
	if _, err := daemon.NewHelperHandler(nil); err == nil {
		t.Fatal("expected error for empty command")
	}
	if _, err := daemon.NewHelperHandler([]string{" "}); err == nil {
		t.Fatal("expected error for blank command")
	}
}
