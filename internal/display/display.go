// Package display drives the panel. A poll loop watches the catalog
// for the active record and hands ready artifacts to a Renderer; what
// the renderer actually is (framebuffer, HDMI player, test fake) is
// the caller's business.
package display

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/facade"
	"frameloop/internal/logging"
)

// Renderer shows one artifact at a time on the panel.
type Renderer interface {
	// Show replaces the current frame with the given artifact.
	Show(ctx context.Context, record *catalog.MediaRecord) error
	// Blank clears the panel when nothing is selected.
	Blank(ctx context.Context) error
}

// Loop polls the facade and keeps the renderer in sync with the
// active record.
type Loop struct {
	svc      *facade.Service
	renderer Renderer
	logger   *slog.Logger
	refresh  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// last successfully rendered state, used to skip redundant renders
	lastSlug     string
	lastArtifact string
}

// NewLoop constructs a display loop over the facade.
func NewLoop(cfg *config.Config, svc *facade.Service, renderer Renderer, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	refresh := time.Duration(cfg.Workflow.DisplayRefresh) * time.Second
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Loop{
		svc:      svc,
		renderer: renderer,
		logger:   logging.WithComponent(logger, "display"),
		refresh:  refresh,
	}
}

// Start launches the poll loop.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("display loop already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.wg.Add(1)
	l.mu.Unlock()

	go l.run(runCtx)
	return nil
}

// Stop terminates the poll loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	l.running = false
	l.cancel = nil
	l.mu.Unlock()

	cancel()
	l.wg.Wait()
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	l.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Refresh(ctx)
		}
	}
}

// Refresh performs one poll cycle: fetch the active record and render
// it if the panel is out of date. A record that is not ready keeps the
// previous frame on screen.
func (l *Loop) Refresh(ctx context.Context) {
	state, err := l.svc.ReadState(ctx)
	if err != nil {
		l.logger.Warn("failed to read catalog state", logging.Error(err))
		return
	}

	record := state.Catalog.ActiveRecord()
	if record == nil {
		l.blank(ctx)
		return
	}
	if !record.IsReady() {
		// Keep the last frame until the conversion lands.
		return
	}

	l.mu.Lock()
	unchanged := l.lastSlug == record.Slug && l.lastArtifact == record.ProcessedPath
	l.mu.Unlock()
	if unchanged {
		return
	}

	if err := l.renderer.Show(ctx, record); err != nil {
		l.logger.Error("failed to render active media",
			logging.String(logging.FieldSlug, record.Slug),
			logging.Error(err))
		return
	}

	l.mu.Lock()
	l.lastSlug = record.Slug
	l.lastArtifact = record.ProcessedPath
	l.mu.Unlock()
	l.logger.Info("frame updated",
		logging.String(logging.FieldSlug, record.Slug),
		logging.String("artifact", record.ProcessedPath))
}

func (l *Loop) blank(ctx context.Context) {
	l.mu.Lock()
	alreadyBlank := l.lastSlug == ""
	l.mu.Unlock()
	if alreadyBlank {
		return
	}
	if err := l.renderer.Blank(ctx); err != nil {
		l.logger.Error("failed to blank panel", logging.Error(err))
		return
	}
	l.mu.Lock()
	l.lastSlug = ""
	l.lastArtifact = ""
	l.mu.Unlock()
	l.logger.Info("panel blanked")
}
