package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frameloop/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to be reported")
	}
	if cfg.Converter.Workers != 2 {
		t.Fatalf("expected default workers 2, got %d", cfg.Converter.Workers)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
api_bind = "127.0.0.1:0"

[converter]
workers = 4
target_width = 800
target_height = 480
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Converter.Workers != 4 {
		t.Fatalf("expected workers 4, got %d", cfg.Converter.Workers)
	}
	if cfg.Converter.TargetWidth != 800 || cfg.Converter.TargetHeight != 480 {
		t.Fatalf("unexpected target size %dx%d", cfg.Converter.TargetWidth, cfg.Converter.TargetHeight)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero workers", func(c *config.Config) { c.Converter.Workers = 0 }, "converter.workers"},
		{"missing ffmpeg", func(c *config.Config) { c.Converter.FFmpegBinary = "" }, "converter.ffmpeg_binary"},
		{"bad panel size", func(c *config.Config) { c.Converter.TargetHeight = 0 }, "target_width"},
		{"zero poll", func(c *config.Config) { c.Workflow.PollInterval = 0 }, "workflow.poll_interval"},
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }, "paths.data_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestLegacyIndexPathDefaultsToDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/frameloop-test"
	cfg.Paths.LegacyIndex = ""
	if got := cfg.LegacyIndexPath(); got != "/tmp/frameloop-test/frame_state.json" {
		t.Fatalf("unexpected legacy index path %q", got)
	}
}
