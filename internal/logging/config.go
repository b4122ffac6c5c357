package logging

import (
	"log/slog"
	"path/filepath"

	"frameloop/internal/config"
)

// NewFromConfig builds the daemon logger per the logging config,
// mirroring output to stdout and the log file under LogDir.
func NewFromConfig(cfg *config.Config) (*slog.Logger, func(), error) {
	return NewWithCloser(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, "frameloop.log"),
		},
	})
}
