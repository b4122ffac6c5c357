// Package preflight validates the environment before the daemon
// starts converting media: required binaries on PATH, writable
// directories, and enough free disk for artifacts.
package preflight

import (
	"context"

	"frameloop/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the low-water mark for the processed directory.
// A full SD card mid-conversion corrupts more than the one artifact.
const minFreeBytes = 256 << 20

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBinary("FFmpeg", cfg.Converter.FFmpegBinary),
		CheckBinary("FFprobe", cfg.Converter.FFprobeBinary),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir),
	}
	if cfg.Paths.InboxDir != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	}
	results = append(results, CheckDiskSpace("Processed disk space", cfg.Paths.ProcessedDir, minFreeBytes))
	return results
}

// Failures filters results down to the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
