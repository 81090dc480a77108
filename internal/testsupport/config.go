package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"gcm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique short temp directory. The
// daemon directory points at <base>/bin and the grace period is zero so tests
// never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := ShortTempDir(t)
	cfgVal := config.Default()
	cfgVal.Daemon.Dir = filepath.Join(base, "bin")
	cfgVal.Daemon.GracePeriodMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHelper sets the backend credential helper command.
func WithHelper(command ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Helper = command
	}
}

// WithGracePeriodMS overrides the post-launch wait.
func WithGracePeriodMS(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.GracePeriodMS = ms
	}
}

// WithStubbedBinaries writes stub executables for the provided names into the
// daemon directory and prepends it to PATH. If names is empty, the daemon
// binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Daemon.Name}
		}
		binDir := b.cfg.Daemon.Dir
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.Dir)
}
