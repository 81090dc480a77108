package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gcm/internal/config"
	"gcm/internal/logging"
)

func TestTraceEnabledRequiresExactOne(t *testing.T) {
	cases := map[string]bool{
		"1":    true,
		"":     false,
		"0":    false,
		"true": false,
		" 1":   false,
		"11":   false,
	}
	for value, want := range cases {
		if got := logging.TraceEnabled(value); got != want {
			t.Fatalf("TraceEnabled(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestNewTraceDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewTrace(false, &buf)
	logger.Debug("connecting", logging.String(logging.FieldSocket, "/tmp/x"))
	logger.Error("boom")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNewTraceEnabledWritesDebugLines(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewTrace(true, &buf)
	logger.Debug("connecting to daemon", logging.String(logging.FieldSocket, "/home/alice/.gcm/.pipe"))

	out := buf.String()
	if !strings.Contains(out, "DEBUG connecting to daemon") {
		t.Fatalf("expected debug line, got %q", out)
	}
	if !strings.Contains(out, "socket=/home/alice/.gcm/.pipe") {
		t.Fatalf("expected socket attribute, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes for non-terminal writer, got %q", out)
	}
}

func TestConsoleLoggerComponentAndColor(t *testing.T) {
	var buf bytes.Buffer
	color := true
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf, Color: &color})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "daemon").Warn("peer rejected", logging.Int("uid", 1001))

	out := buf.String()
	if !strings.Contains(out, "\x1b[33mWARN\x1b[0m [daemon] peer rejected") {
		t.Fatalf("unexpected console output %q", out)
	}
	if !strings.Contains(out, "uid=1001") {
		t.Fatalf("expected uid attribute, got %q", out)
	}
}

func TestConsoleLoggerQuotesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("req").Info("handled", logging.String("verb", "get"), logging.String("note", "two words"))

	out := buf.String()
	if !strings.Contains(out, "req.verb=get") {
		t.Fatalf("expected grouped key, got %q", out)
	}
	if !strings.Contains(out, `req.note="two words"`) {
		t.Fatalf("expected quoted value, got %q", out)
	}
}

func TestJSONLoggerShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("session closed", logging.String(logging.FieldSessionID, "abc"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if entry["level"] != "info" || entry["msg"] != "session closed" || entry["session_id"] != "abc" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	logPath := filepath.Join(t.TempDir(), "logs", "gcmd.log")

	logger, closer, err := logging.NewFromConfig(&cfg, logPath)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon listening")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"daemon listening"`) {
		t.Fatalf("expected log line in file, got %q", content)
	}
}
