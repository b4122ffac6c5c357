package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/converter"
	"frameloop/internal/daemon"
	"frameloop/internal/display"
	"frameloop/internal/facade"
	"frameloop/internal/logging"
	"frameloop/internal/migrate"
	"frameloop/internal/pipeline"
	"frameloop/internal/preflight"
	"frameloop/internal/tracker"
	"frameloop/internal/watch"
)

// bootstrap assembles the daemon: preflight, store, legacy import,
// facade, and the background services.
func bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if err := runPreflight(ctx, cfg, logger); err != nil {
		return nil, err
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	if imported, err := migrate.Run(ctx, cfg, store, logger); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("legacy import: %w", err)
	} else if imported > 0 {
		logger.Info("imported legacy catalog", logging.Int("records", imported))
	}

	svc := facade.New(cfg, store, tracker.New(), logger)

	opts := daemon.Options{
		Pipeline: pipeline.New(cfg, svc, converter.FromConfig(cfg), logger),
		Display:  display.NewLoop(cfg, svc, display.NewSymlinkRenderer(cfg.Paths.DataDir), logger),
	}
	if strings.TrimSpace(cfg.Paths.InboxDir) != "" {
		opts.Watcher = watch.New(cfg, svc, logger)
	}

	d, err := daemon.New(cfg, svc, logger, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range results {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail))
		} else {
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail))
		}
	}
	if failed := preflight.Failures(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight checks failed: %s", strings.Join(names, "; "))
	}
	return nil
}
