package daemonctl_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gcm/internal/daemonctl"
	"gcm/internal/endpoint"
)

func TestResolveLaunchOptionsUsesExplicitDir(t *testing.T) {
	opts, err := daemonctl.ResolveLaunchOptions("/opt/gcm/bin", "gcmd")
	if err != nil {
		t.Fatalf("ResolveLaunchOptions: %v", err)
	}
	if opts.Executable != "/opt/gcm/bin/gcmd" || opts.Dir != "/opt/gcm/bin" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestResolveLaunchOptionsDefaultsToExecutableDir(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Skipf("os.Executable unavailable: %v", err)
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}
	opts, err := daemonctl.ResolveLaunchOptions("", "gcmd")
	if err != nil {
		t.Fatalf("ResolveLaunchOptions: %v", err)
	}
	if opts.Dir != filepath.Dir(self) {
		t.Fatalf("expected dir %q, got %q", filepath.Dir(self), opts.Dir)
	}
	if opts.Executable != filepath.Join(filepath.Dir(self), "gcmd") {
		t.Fatalf("unexpected executable %q", opts.Executable)
	}
}

func TestResolveLaunchOptionsRequiresName(t *testing.T) {
	if _, err := daemonctl.ResolveLaunchOptions("/opt", " "); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestLaunchStartsDaemonInItsDirectory(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\npwd > started.tmp && mv started.tmp started\n"
	if err := os.WriteFile(filepath.Join(dir, "gcmd"), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub daemon: %v", err)
	}

	opts, err := daemonctl.ResolveLaunchOptions(dir, "gcmd")
	if err != nil {
		t.Fatalf("ResolveLaunchOptions: %v", err)
	}
	if err := daemonctl.Launch(opts); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	marker := filepath.Join(dir, "started")
	deadline := time.Now().Add(5 * time.Second)
	var content []byte
	for time.Now().Before(deadline) {
		content, err = os.ReadFile(marker)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("stub daemon never ran: %v", err)
	}

	wantDir, _ := filepath.EvalSymlinks(dir)
	gotDir, _ := filepath.EvalSymlinks(strings.TrimSpace(string(content)))
	if gotDir != wantDir {
		t.Fatalf("expected working directory %q, got %q", wantDir, gotDir)
	}
}

func TestLaunchMissingExecutable(t *testing.T) {
	err := daemonctl.Launch(daemonctl.LaunchOptions{Executable: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error launching missing executable")
	}
	if err := daemonctl.Launch(daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestEnsureRunningStartsOnceAndWaits(t *testing.T) {
	var calls []daemonctl.LaunchOptions
	opts := daemonctl.LaunchOptions{Executable: "/opt/gcm/gcmd", Dir: "/opt/gcm"}
	launcher := daemonctl.NewLauncher(opts, 50*time.Millisecond, nil)
	launcher.Start = func(o daemonctl.LaunchOptions) error {
		calls = append(calls, o)
		return nil
	}

	begin := time.Now()
	launcher.EnsureRunning(context.Background(), endpoint.Path("/home/alice/.gcm/.pipe"))
	elapsed := time.Since(begin)

	if len(calls) != 1 {
		t.Fatalf("expected one launch, got %d", len(calls))
	}
	if calls[0] != opts {
		t.Fatalf("unexpected launch options %+v", calls[0])
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("expected grace period to elapse, returned after %s", elapsed)
	}
}

func TestEnsureRunningIgnoresSpawnFailure(t *testing.T) {
	launcher := daemonctl.NewLauncher(daemonctl.LaunchOptions{}, 0, nil)
	calls := 0
	launcher.Start = func(daemonctl.LaunchOptions) error {
		calls++
		return errors.New("exec format error")
	}
	launcher.EnsureRunning(context.Background(), endpoint.Path("/tmp/x"))
	if calls != 1 {
		t.Fatalf("expected one launch attempt, got %d", calls)
	}
}

func TestEnsureRunningStopsWaitingOnCancel(t *testing.T) {
	launcher := daemonctl.NewLauncher(daemonctl.LaunchOptions{}, time.Hour, nil)
	launcher.Start = func(daemonctl.LaunchOptions) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		launcher.EnsureRunning(ctx, endpoint.Path("/tmp/x"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureRunning ignored context cancellation")
	}
}

func TestReachable(t *testing.T) {
	socket := endpoint.Path(filepath.Join(t.TempDir(), "d.sock"))

	ok, err := daemonctl.Reachable(socket)
	if err != nil || ok {
		t.Fatalf("expected unreachable without listener, got ok=%v err=%v", ok, err)
	}

	listener, err := net.Listen("unix", socket.String())
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ok, err = daemonctl.Reachable(socket)
	if err != nil || !ok {
		t.Fatalf("expected reachable, got ok=%v err=%v", ok, err)
	}
}
