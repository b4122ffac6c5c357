package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"frameloop/internal/config"
	"frameloop/internal/display"
	"frameloop/internal/facade"
	"frameloop/internal/logging"
	"frameloop/internal/pipeline"
	"frameloop/internal/watch"
)

// Daemon coordinates the background services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	svc      *facade.Service
	pipeline *pipeline.Pipeline
	watcher  *watch.Watcher
	display  *display.Loop
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Options carries the optional services the daemon manages. A nil
// field disables that service.
type Options struct {
	Pipeline *pipeline.Pipeline
	Watcher  *watch.Watcher
	Display  *display.Loop
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, svc *facade.Service, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and catalog facade")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "frameloopd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		svc:      svc,
		pipeline: opts.Pipeline,
		watcher:  opts.Watcher,
		display:  opts.Display,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the instance lock, sweeps conversions orphaned by the
// previous run, and launches every configured service.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another frameloop daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if swept, sweepErr := d.svc.SweepInterrupted(d.ctx); sweepErr != nil {
		d.teardown()
		return fmt.Errorf("sweep interrupted conversions: %w", sweepErr)
	} else if swept > 0 {
		d.logger.Warn("previous run left conversions in flight", logging.Int("count", swept))
	}

	if d.pipeline != nil {
		if err := d.pipeline.Start(d.ctx); err != nil {
			d.teardown()
			return fmt.Errorf("start pipeline: %w", err)
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			d.teardown()
			return fmt.Errorf("start inbox watcher: %w", err)
		}
	}
	if d.display != nil {
		if err := d.display.Start(d.ctx); err != nil {
			d.teardown()
			return fmt.Errorf("start display loop: %w", err)
		}
	}
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.teardown()
			return fmt.Errorf("start api server: %w", err)
		}
	}

	d.running.Store(true)
	d.logger.Info("frameloop daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the services down in reverse order, giving in-flight
// conversions the configured grace period to report.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	if d.display != nil {
		d.display.Stop()
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}

	grace := time.Duration(d.cfg.Workflow.ShutdownGracePeriod) * time.Second
	if grace > 0 {
		waitCtx, cancel := context.WithTimeout(context.Background(), grace)
		if err := d.svc.WaitForQuiet(waitCtx); err != nil {
			d.logger.Warn("conversions still in flight at shutdown", logging.Error(err))
		}
		cancel()
	}
	if d.pipeline != nil {
		d.pipeline.Stop()
	}

	d.teardown()
	d.running.Store(false)
	d.logger.Info("frameloop daemon stopped")
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.svc.Store().Close()
}

// Running reports whether the daemon is started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the listen address of the HTTP API, or empty when
// the API is disabled or not started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}
