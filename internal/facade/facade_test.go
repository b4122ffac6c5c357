package facade_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/facade"
	"frameloop/internal/testsupport"
	"frameloop/internal/tracker"
)

func newService(t *testing.T) (*facade.Service, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return facade.New(cfg, store, tracker.New(), nil), cfg
}

func addFile(t *testing.T, svc *facade.Service, cfg *config.Config, name string) *catalog.MediaRecord {
	t.Helper()
	path := filepath.Join(cfg.Paths.MediaDir, name)
	testsupport.WriteMediaFile(t, path, 64)
	record, err := svc.AddMedia(context.Background(), path)
	if err != nil {
		t.Fatalf("AddMedia(%s): %v", name, err)
	}
	return record
}

func TestAddMediaRegistersAndAppends(t *testing.T) {
	svc, cfg := newService(t)

	var woken int
	svc.SetNotifier(func() { woken++ })

	record := addFile(t, svc, cfg, "Holiday Photo.jpg")
	if record.Slug != "holiday-photo" {
		t.Fatalf("slug = %q", record.Slug)
	}
	if record.Status != catalog.StatusPending || record.Kind != catalog.KindImage {
		t.Fatalf("unexpected record %+v", record)
	}
	if woken != 1 {
		t.Fatalf("expected pipeline wake, got %d", woken)
	}

	// Same file name again gets a suffixed slug.
	second := addFile(t, svc, cfg, "subdir/Holiday Photo.jpg")
	if second.Slug == record.Slug {
		t.Fatal("expected collision suffix")
	}

	state, err := svc.ReadState(context.Background())
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if len(state.Catalog.Loop) != 2 || state.Catalog.Loop[0] != record.Slug {
		t.Fatalf("unexpected loop %v", state.Catalog.Loop)
	}
}

func TestAddMediaRejectsUnknownExtension(t *testing.T) {
	svc, cfg := newService(t)
	path := filepath.Join(cfg.Paths.MediaDir, "notes.txt")
	testsupport.WriteMediaFile(t, path, 8)
	if _, err := svc.AddMedia(context.Background(), path); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddMediaRejectsMissingFile(t *testing.T) {
	svc, cfg := newService(t)
	if _, err := svc.AddMedia(context.Background(), filepath.Join(cfg.Paths.MediaDir, "ghost.jpg")); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRemoveMediaCleansLoopAndArtifact(t *testing.T) {
	svc, cfg := newService(t)
	record := addFile(t, svc, cfg, "a.jpg")
	addFile(t, svc, cfg, "b.jpg")

	// Push the record through its lifecycle so it owns an artifact.
	token, _, err := svc.BeginProcessing(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	artifact := filepath.Join(cfg.Paths.ProcessedDir, record.Slug+".jpg")
	testsupport.WriteMediaFile(t, artifact, 32)
	if err := svc.MarkReady(context.Background(), token, artifact, catalog.Metadata{Width: 10, Height: 10}); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	if err := svc.SetActive(context.Background(), record.Slug); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := svc.RemoveMedia(context.Background(), record.Slug); err != nil {
		t.Fatalf("RemoveMedia: %v", err)
	}

	if _, err := os.Stat(artifact); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("artifact survived removal: %v", err)
	}
	state, err := svc.ReadState(context.Background())
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if _, ok := state.Catalog.Media[record.Slug]; ok {
		t.Fatal("record survived removal")
	}
	// The successor in the loop became active.
	if state.Catalog.Active != "b" {
		t.Fatalf("active = %q, want b", state.Catalog.Active)
	}

	if err := svc.RemoveMedia(context.Background(), record.Slug); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBeginProcessingIsExclusive(t *testing.T) {
	svc, cfg := newService(t)
	record := addFile(t, svc, cfg, "a.jpg")

	token, got, err := svc.BeginProcessing(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if got.Status != catalog.StatusProcessing {
		t.Fatalf("status = %s", got.Status)
	}

	if _, _, err := svc.BeginProcessing(context.Background(), record.Slug); !errors.Is(err, catalog.ErrAlreadyInFlight) {
		t.Fatalf("expected ErrAlreadyInFlight, got %v", err)
	}

	if err := svc.MarkFailed(context.Background(), token, "encoder crashed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// The claim is gone but the record is failed, so a new claim is
	// rejected by status, not by the tracker.
	if _, _, err := svc.BeginProcessing(context.Background(), record.Slug); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation for failed record, got %v", err)
	}

	got2, err := svc.Store().Get(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got2.Status != catalog.StatusFailed || got2.ErrorMessage != "encoder crashed" {
		t.Fatalf("unexpected record %+v", got2)
	}
}

func TestMarkReadyDiscardsResultForRemovedMedia(t *testing.T) {
	svc, cfg := newService(t)
	record := addFile(t, svc, cfg, "a.jpg")

	token, _, err := svc.BeginProcessing(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if err := svc.RemoveMedia(context.Background(), record.Slug); err != nil {
		t.Fatalf("RemoveMedia: %v", err)
	}

	artifact := filepath.Join(cfg.Paths.ProcessedDir, record.Slug+".jpg")
	testsupport.WriteMediaFile(t, artifact, 32)
	if err := svc.MarkReady(context.Background(), token, artifact, catalog.Metadata{}); err != nil {
		t.Fatalf("MarkReady after removal: %v", err)
	}
	if _, err := os.Stat(artifact); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("orphaned artifact not discarded")
	}
	if svc.Tracker().Held(record.Slug) {
		t.Fatal("claim not released")
	}
}

func TestRetryOnlyFailedRecords(t *testing.T) {
	svc, cfg := newService(t)
	record := addFile(t, svc, cfg, "a.jpg")

	if err := svc.Retry(context.Background(), record.Slug); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation for pending record, got %v", err)
	}
	if err := svc.Retry(context.Background(), "ghost"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	token, _, err := svc.BeginProcessing(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if err := svc.MarkFailed(context.Background(), token, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	var woken int
	svc.SetNotifier(func() { woken++ })
	if err := svc.Retry(context.Background(), record.Slug); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if woken != 1 {
		t.Fatal("retry did not wake the pipeline")
	}

	got, err := svc.Store().Get(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != catalog.StatusPending || got.ErrorMessage != "" {
		t.Fatalf("unexpected record after retry %+v", got)
	}
}

func TestPendingSlugsSkipsClaimed(t *testing.T) {
	svc, cfg := newService(t)
	a := addFile(t, svc, cfg, "a.jpg")
	addFile(t, svc, cfg, "b.jpg")

	if _, _, err := svc.BeginProcessing(context.Background(), a.Slug); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}

	pending, err := svc.PendingSlugs(context.Background())
	if err != nil {
		t.Fatalf("PendingSlugs: %v", err)
	}
	if len(pending) != 1 || pending[0] != "b" {
		t.Fatalf("unexpected pending %v", pending)
	}
}

func TestSweepInterrupted(t *testing.T) {
	svc, cfg := newService(t)
	record := addFile(t, svc, cfg, "a.jpg")
	if _, _, err := svc.BeginProcessing(context.Background(), record.Slug); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}

	// Simulate a restart: new facade over the same store, empty tracker.
	swept, err := facade.New(cfg, svc.Store(), tracker.New(), nil).SweepInterrupted(context.Background())
	if err != nil {
		t.Fatalf("SweepInterrupted: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	got, err := svc.Store().Get(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != catalog.StatusFailed || got.ErrorMessage != "interrupted by restart" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestAdvanceAndReorder(t *testing.T) {
	svc, cfg := newService(t)
	addFile(t, svc, cfg, "a.jpg")
	addFile(t, svc, cfg, "b.jpg")

	active, err := svc.Advance(context.Background())
	if err != nil || active != "a" {
		t.Fatalf("Advance = %q, %v", active, err)
	}

	if err := svc.Reorder(context.Background(), []string{"b", "a"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if err := svc.Reorder(context.Background(), []string{"b"}); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	active, err = svc.Advance(context.Background())
	if err != nil || active != "b" {
		t.Fatalf("Advance after reorder = %q, %v", active, err)
	}
}
