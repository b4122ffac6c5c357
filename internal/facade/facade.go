package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/logging"
	"frameloop/internal/tracker"
)

// Service is the single entry point for catalog mutations.
type Service struct {
	store   *catalog.Store
	tracker *tracker.Tracker
	cfg     *config.Config
	logger  *slog.Logger

	mu     sync.Mutex
	notify func()
}

// New constructs the facade over an open store.
func New(cfg *config.Config, store *catalog.Store, track *tracker.Tracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:   store,
		tracker: track,
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "facade"),
	}
}

// SetNotifier registers a callback invoked whenever new conversion
// work appears. The pipeline uses it to cut its poll sleep short.
func (s *Service) SetNotifier(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Service) wakePipeline() {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Tracker exposes the in-flight tracker to the pipeline.
func (s *Service) Tracker() *tracker.Tracker {
	return s.tracker
}

// Store exposes the underlying store for health checks.
func (s *Service) Store() *catalog.Store {
	return s.store
}

// KindForPath infers the media kind from a file extension.
func KindForPath(path string) (catalog.Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp":
		return catalog.KindImage, nil
	case ".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v":
		return catalog.KindVideo, nil
	default:
		return "", catalog.Wrap(catalog.ErrValidation, "add",
			fmt.Sprintf("unsupported media extension %q", filepath.Ext(path)), nil)
	}
}

// AddMedia registers a new file, appends it to the loop and schedules
// conversion. The slug is derived from the file name and suffixed on
// collision; the record starts pending.
func (s *Service) AddMedia(ctx context.Context, path string) (*catalog.MediaRecord, error) {
	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, catalog.Wrap(catalog.ErrValidation, "add",
			fmt.Sprintf("source file %q is not readable", path), statErr)
	}

	var record *catalog.MediaRecord
	_, err = s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		slug := catalog.UniqueSlug(path, func(candidate string) bool {
			_, taken := cat.Media[candidate]
			return taken
		})
		record = &catalog.MediaRecord{
			Slug:    slug,
			Kind:    kind,
			RawPath: path,
			Status:  catalog.StatusPending,
			Metadata: catalog.Metadata{
				SourceName: filepath.Base(path),
			},
		}
		cat.Media[slug] = record
		catalog.AppendLoop(cat, slug)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("media added",
		logging.String(logging.FieldSlug, record.Slug),
		logging.String("kind", string(record.Kind)),
		logging.String("path", path))
	s.wakePipeline()
	return record.Clone(), nil
}

// RemoveMedia deletes the record and its loop entry in one commit,
// then removes the processed artifact best-effort. A conversion in
// flight for the slug keeps running; its result is discarded when it
// reports back.
func (s *Service) RemoveMedia(ctx context.Context, slug string) error {
	var processedPath string
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		record, ok := cat.Media[slug]
		if !ok {
			return catalog.Wrap(catalog.ErrNotFound, "remove", fmt.Sprintf("slug %q", slug), nil)
		}
		processedPath = record.ProcessedPath
		catalog.RemoveFromLoop(cat, slug)
		delete(cat.Media, slug)
		return nil
	})
	if err != nil {
		return err
	}

	if processedPath != "" {
		if rmErr := os.Remove(processedPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove artifact",
				logging.String(logging.FieldSlug, slug),
				logging.Error(rmErr))
		}
	}
	s.logger.Info("media removed", logging.String(logging.FieldSlug, slug))
	return nil
}

// SetActive points the display at the given slug, or clears the
// selection when slug is empty.
func (s *Service) SetActive(ctx context.Context, slug string) error {
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		return catalog.SetActive(cat, slug)
	})
	return err
}

// Advance moves the active pointer to the next loop entry, wrapping at
// the end.
func (s *Service) Advance(ctx context.Context) (string, error) {
	var active string
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		catalog.Advance(cat)
		active = cat.Active
		return nil
	})
	if err != nil {
		return "", err
	}
	return active, nil
}

// Reorder replaces the loop order. The new order must be a permutation
// of the current loop.
func (s *Service) Reorder(ctx context.Context, order []string) error {
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		return catalog.ReorderLoop(cat, order)
	})
	return err
}

// Retry moves a failed record back to pending and schedules another
// conversion attempt. Only failed records can be retried.
func (s *Service) Retry(ctx context.Context, slug string) error {
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		record, ok := cat.Media[slug]
		if !ok {
			return catalog.Wrap(catalog.ErrNotFound, "retry", fmt.Sprintf("slug %q", slug), nil)
		}
		if record.Status != catalog.StatusFailed {
			return catalog.Wrap(catalog.ErrValidation, "retry",
				fmt.Sprintf("slug %q is %s, only failed records can be retried", slug, record.Status), nil)
		}
		record.Status = catalog.StatusPending
		record.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("retry scheduled", logging.String(logging.FieldSlug, slug))
	s.wakePipeline()
	return nil
}

// State is a consistent view of the catalog plus in-flight work.
type State struct {
	Catalog    *catalog.Catalog
	Processing map[string]string
	Stats      map[catalog.Status]int
}

// ReadState returns a snapshot of the catalog overlaid with the
// tracker's in-flight claims.
func (s *Service) ReadState(ctx context.Context) (*State, error) {
	cat, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[catalog.Status]int)
	for _, record := range cat.Media {
		stats[record.Status]++
	}
	return &State{
		Catalog:    cat,
		Processing: s.tracker.InFlight(),
		Stats:      stats,
	}, nil
}

// PendingSlugs returns unclaimed pending slugs in deterministic order.
// The pipeline uses it as its work queue.
func (s *Service) PendingSlugs(ctx context.Context) ([]string, error) {
	cat, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var slugs []string
	for slug, record := range cat.Media {
		if record.Status == catalog.StatusPending && !s.tracker.Held(slug) {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// BeginProcessing claims the slug and moves its record to processing.
// Exactly one caller wins for a given slug; losers get
// ErrAlreadyInFlight.
func (s *Service) BeginProcessing(ctx context.Context, slug string) (*tracker.Token, *catalog.MediaRecord, error) {
	token, err := s.tracker.TryAcquire(slug)
	if err != nil {
		return nil, nil, err
	}

	var record *catalog.MediaRecord
	_, err = s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		current, ok := cat.Media[slug]
		if !ok {
			return catalog.Wrap(catalog.ErrNotFound, "process", fmt.Sprintf("slug %q", slug), nil)
		}
		if current.Status != catalog.StatusPending {
			return catalog.Wrap(catalog.ErrValidation, "process",
				fmt.Sprintf("slug %q is %s, expected pending", slug, current.Status), nil)
		}
		current.Status = catalog.StatusProcessing
		record = current
		return nil
	})
	if err != nil {
		s.tracker.Release(token)
		return nil, nil, err
	}
	return token, record.Clone(), nil
}

// MarkReady records a successful conversion and releases the claim.
// If the record was removed while the job ran, the artifact is
// discarded and no error is returned.
func (s *Service) MarkReady(ctx context.Context, token *tracker.Token, outputPath string, meta catalog.Metadata) error {
	defer s.tracker.Release(token)
	slug := token.Slug()

	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		record, ok := cat.Media[slug]
		if !ok {
			return catalog.Wrap(catalog.ErrNotFound, "finish", fmt.Sprintf("slug %q", slug), nil)
		}
		record.Status = catalog.StatusReady
		record.ProcessedPath = outputPath
		record.ErrorMessage = ""
		record.Metadata = meta
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		s.logger.Info("discarding result for removed media",
			logging.String(logging.FieldSlug, slug),
			logging.String(logging.FieldJobID, token.JobID()))
		if rmErr := os.Remove(outputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove orphaned artifact",
				logging.String("path", outputPath), logging.Error(rmErr))
		}
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("media ready",
		logging.String(logging.FieldSlug, slug),
		logging.String(logging.FieldJobID, token.JobID()),
		logging.String("artifact", outputPath))
	return nil
}

// MarkFailed records a conversion failure and releases the claim. A
// record removed mid-job is ignored.
func (s *Service) MarkFailed(ctx context.Context, token *tracker.Token, reason string) error {
	defer s.tracker.Release(token)
	slug := token.Slug()

	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		record, ok := cat.Media[slug]
		if !ok {
			return catalog.Wrap(catalog.ErrNotFound, "finish", fmt.Sprintf("slug %q", slug), nil)
		}
		record.Status = catalog.StatusFailed
		record.ErrorMessage = reason
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Warn("media failed",
		logging.String(logging.FieldSlug, slug),
		logging.String(logging.FieldJobID, token.JobID()),
		logging.String("reason", reason))
	return nil
}

// SweepInterrupted fails any record left in processing by a previous
// daemon run. No jobs survive a restart, so every processing record
// found at startup is an orphan.
func (s *Service) SweepInterrupted(ctx context.Context) (int, error) {
	var swept int
	_, err := s.store.Commit(ctx, func(cat *catalog.Catalog) error {
		swept = 0
		for _, record := range cat.Media {
			if record.Status == catalog.StatusProcessing {
				record.Status = catalog.StatusFailed
				record.ErrorMessage = "interrupted by restart"
				swept++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.logger.Warn("swept interrupted conversions", logging.Int("count", swept))
	}
	return swept, nil
}

// WaitForQuiet blocks until no conversions are in flight or the
// context expires. Shutdown uses it to honor the grace period.
func (s *Service) WaitForQuiet(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(s.tracker.InFlight()) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
