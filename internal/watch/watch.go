// Package watch ingests media dropped into the inbox directory. An
// fsnotify watcher picks up new files, waits for them to stop growing
// (USB copies and network transfers arrive in chunks), moves them into
// the media directory and registers them with the catalog.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/facade"
	"frameloop/internal/logging"
)

// Watcher ingests files from the inbox directory.
type Watcher struct {
	cfg    *config.Config
	svc    *facade.Service
	logger *slog.Logger
	settle time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an inbox watcher.
func New(cfg *config.Config, svc *facade.Service, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	settle := time.Duration(cfg.Workflow.InboxSettleSeconds) * time.Second
	if settle <= 0 {
		settle = time.Second
	}
	return &Watcher{
		cfg:    cfg,
		svc:    svc,
		logger: logging.WithComponent(logger, "inbox"),
		settle: settle,
	}
}

// Start begins watching the inbox. Files already sitting there are
// ingested immediately.
func (w *Watcher) Start(ctx context.Context) error {
	inbox := strings.TrimSpace(w.cfg.Paths.InboxDir)
	if inbox == "" {
		return errors.New("inbox directory not configured")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("inbox watcher already running")
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := notifier.Add(inbox); err != nil {
		_ = notifier.Close()
		w.mu.Unlock()
		return fmt.Errorf("watch inbox %q: %w", inbox, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx, notifier)
	w.logger.Info("inbox watcher started", logging.String("dir", inbox))
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, notifier *fsnotify.Watcher) {
	defer w.wg.Done()
	defer notifier.Close()

	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-notifier.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			w.ingest(ctx, event.Name)
		case err, ok := <-notifier.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		}
	}
}

// sweepExisting ingests whatever was dropped into the inbox while the
// daemon was down.
func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.InboxDir)
	if err != nil {
		w.logger.Warn("failed to scan inbox", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		w.ingest(ctx, filepath.Join(w.cfg.Paths.InboxDir, entry.Name()))
	}
}

// ingest waits for the file to settle, moves it into the media
// directory and registers it. Files the catalog cannot use stay in
// the inbox for the user to inspect.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if _, err := facade.KindForPath(path); err != nil {
		return
	}
	if !w.waitForSettle(ctx, path) {
		return
	}

	dest := filepath.Join(w.cfg.Paths.MediaDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = uniqueDestination(dest)
	}
	if err := moveFile(path, dest); err != nil {
		w.logger.Warn("failed to move inbox file",
			logging.String("path", path), logging.Error(err))
		return
	}

	record, err := w.svc.AddMedia(ctx, dest)
	if err != nil {
		if errors.Is(err, catalog.ErrValidation) {
			w.logger.Warn("inbox file rejected",
				logging.String("path", dest), logging.Error(err))
			return
		}
		w.logger.Error("failed to register inbox file",
			logging.String("path", dest), logging.Error(err))
		return
	}
	w.logger.Info("inbox file ingested",
		logging.String(logging.FieldSlug, record.Slug),
		logging.String("path", dest))
}

// waitForSettle blocks until the file size has been stable for the
// settle interval. It reports false when the file vanished or the
// context was canceled.
func (w *Watcher) waitForSettle(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func uniqueDestination(dest string) string {
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// moveFile renames when possible and falls back to copy+remove for
// cross-device moves (inbox on USB, media dir on the SD card).
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
