package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"frameloop/internal/testsupport"
)

func TestCheckBinary(t *testing.T) {
	if r := CheckBinary("Missing", "definitely-not-a-real-binary"); r.Passed {
		t.Fatalf("expected failure, got %+v", r)
	}
	if r := CheckBinary("Unset", ""); r.Passed {
		t.Fatalf("expected failure for empty command, got %+v", r)
	}

	binDir := t.TempDir()
	stub := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if r := CheckBinary("FFmpeg", stub); !r.Passed {
		t.Fatalf("expected pass for %s, got %+v", stub, r)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDirectoryAccess("Temp", dir); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := CheckDirectoryAccess("Missing", filepath.Join(dir, "nope")); r.Passed {
		t.Fatalf("expected failure, got %+v", r)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if r := CheckDirectoryAccess("File", file); r.Passed {
		t.Fatalf("expected failure for non-directory, got %+v", r)
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Converter.FFmpegBinary = "definitely-not-a-real-binary"
	cfg.Converter.FFprobeBinary = "also-not-a-real-binary"

	results := RunAll(context.Background(), cfg)
	failed := Failures(results)
	if len(failed) < 2 {
		t.Fatalf("expected binary failures, got %+v", failed)
	}
	for _, r := range failed {
		if r.Name != "FFmpeg" && r.Name != "FFprobe" {
			t.Fatalf("unexpected failure %+v", r)
		}
	}
}
