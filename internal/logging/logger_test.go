package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, newLevelVar(slog.LevelInfo)))
	logger = WithComponent(logger, "pipeline")

	logger.Info("job finished",
		String("slug", "sunset"),
		Int("attempts", 1),
		Error(errors.New("exit status 1")))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO pipeline: job finished") {
		t.Fatalf("unexpected line: %q", line)
	}
	for _, want := range []string{"slug=sunset", "attempts=1", `error="exit status 1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, FieldComponent+"=") {
		t.Errorf("component should render as prefix, not attr: %q", line)
	}
}

func TestConsoleHandlerQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, newLevelVar(slog.LevelInfo)))

	logger.Info("paths", String("dir", "/tmp/with space"), String("empty", ""))

	line := buf.String()
	if !strings.Contains(line, `dir="/tmp/with space"`) {
		t.Errorf("value with space not quoted: %q", line)
	}
	if !strings.Contains(line, `empty=""`) {
		t.Errorf("empty value not quoted: %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, newLevelVar(slog.LevelWarn)))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record leaked past warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestJSONHandlerEmitsLowercaseLevelAndTS(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, newLevelVar(slog.LevelInfo)))

	logger.Info("started", String("component", "daemon"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["level"] != "info" {
		t.Errorf("level = %v, want info", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Errorf("missing ts key: %v", record)
	}
	if record["msg"] != "started" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewWithCloserWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "frameloop.log")
	logger, closeFiles, err := NewWithCloser(Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("NewWithCloser: %v", err)
	}

	logger.Debug("file sink works", String("slug", "demo"))
	closeFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file sink works") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func newLevelVar(level slog.Level) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return lv
}
