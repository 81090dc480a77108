package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// PathEnv overrides the configuration file location.
const PathEnv = "GCM_CONFIG"

// FileName is the configuration filename inside the application directory.
const FileName = "config.toml"

const (
	defaultDaemonName    = "gcmd"
	defaultGracePeriodMS = 1000
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Daemon describes how the credential daemon is located, started, and what it
// relays requests to.
type Daemon struct {
	Name          string   `toml:"name"`
	Dir           string   `toml:"dir"`
	GracePeriodMS int      `toml:"grace_period_ms"`
	Helper        []string `toml:"helper"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gcm and gcmd.
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Name:          defaultDaemonName,
			GracePeriodMS: defaultGracePeriodMS,
			Helper:        []string{"git", "credential-store"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// ResolvePath returns the configuration path for an application directory,
// honouring the GCM_CONFIG override.
func ResolvePath(appDir string) string {
	if override := strings.TrimSpace(os.Getenv(PathEnv)); override != "" {
		return override
	}
	return filepath.Join(appDir, FileName)
}

// Load parses and validates the configuration file at path. A missing file
// yields the defaults. It returns the resolved path and whether the file
// existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		return "", false, nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	c.Daemon.Name = strings.TrimSpace(c.Daemon.Name)
	if c.Daemon.Name == "" {
		c.Daemon.Name = defaultDaemonName
	}
	if dir := strings.TrimSpace(c.Daemon.Dir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("daemon.dir: %w", err)
		}
		c.Daemon.Dir = expanded
	} else {
		c.Daemon.Dir = ""
	}

	helper := make([]string, 0, len(c.Daemon.Helper))
	for _, arg := range c.Daemon.Helper {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			helper = append(helper, trimmed)
		}
	}
	c.Daemon.Helper = helper

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.ContainsRune(c.Daemon.Name, filepath.Separator) {
		return fmt.Errorf("daemon.name must be a bare executable name, got %q", c.Daemon.Name)
	}
	if c.Daemon.GracePeriodMS < 0 {
		return errors.New("daemon.grace_period_ms must be non-negative")
	}
	if len(c.Daemon.Helper) == 0 {
		return errors.New("daemon.helper must name a credential helper command")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// GracePeriod returns the post-launch wait before the client reconnects.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Daemon.GracePeriodMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
