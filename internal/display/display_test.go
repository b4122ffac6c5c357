package display_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/display"
	"frameloop/internal/facade"
	"frameloop/internal/testsupport"
	"frameloop/internal/tracker"
)

type fakeRenderer struct {
	mu     sync.Mutex
	shown  []string
	blanks int
}

func (f *fakeRenderer) Show(ctx context.Context, record *catalog.MediaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, record.Slug)
	return nil
}

func (f *fakeRenderer) Blank(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blanks++
	return nil
}

func (f *fakeRenderer) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shown...), f.blanks
}

func newLoop(t *testing.T) (*display.Loop, *fakeRenderer, *facade.Service, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := facade.New(cfg, store, tracker.New(), nil)
	renderer := &fakeRenderer{}
	return display.NewLoop(cfg, svc, renderer, nil), renderer, svc, cfg
}

func makeReady(t *testing.T, svc *facade.Service, cfg *config.Config, name string) *catalog.MediaRecord {
	t.Helper()
	path := filepath.Join(cfg.Paths.MediaDir, name)
	testsupport.WriteMediaFile(t, path, 64)
	record, err := svc.AddMedia(context.Background(), path)
	if err != nil {
		t.Fatalf("AddMedia: %v", err)
	}
	token, _, err := svc.BeginProcessing(context.Background(), record.Slug)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	artifact := filepath.Join(cfg.Paths.ProcessedDir, record.Slug+".jpg")
	if err := svc.MarkReady(context.Background(), token, artifact, catalog.Metadata{}); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	return record
}

func TestRefreshRendersActiveReadyMedia(t *testing.T) {
	loop, renderer, svc, cfg := newLoop(t)
	record := makeReady(t, svc, cfg, "a.jpg")
	if err := svc.SetActive(context.Background(), record.Slug); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	loop.Refresh(context.Background())
	shown, _ := renderer.snapshot()
	if len(shown) != 1 || shown[0] != record.Slug {
		t.Fatalf("unexpected renders %v", shown)
	}

	// Unchanged state renders nothing new.
	loop.Refresh(context.Background())
	loop.Refresh(context.Background())
	shown, _ = renderer.snapshot()
	if len(shown) != 1 {
		t.Fatalf("redundant renders: %v", shown)
	}
}

func TestRefreshSkipsUnreadyActive(t *testing.T) {
	loop, renderer, svc, cfg := newLoop(t)
	ready := makeReady(t, svc, cfg, "ready.jpg")
	if err := svc.SetActive(context.Background(), ready.Slug); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	loop.Refresh(context.Background())

	// Advance onto a still-pending record; the old frame stays up.
	path := filepath.Join(cfg.Paths.MediaDir, "pending.jpg")
	testsupport.WriteMediaFile(t, path, 64)
	pending, err := svc.AddMedia(context.Background(), path)
	if err != nil {
		t.Fatalf("AddMedia: %v", err)
	}
	if err := svc.SetActive(context.Background(), pending.Slug); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	loop.Refresh(context.Background())
	shown, blanks := renderer.snapshot()
	if len(shown) != 1 || blanks != 0 {
		t.Fatalf("unready media was rendered: shown=%v blanks=%d", shown, blanks)
	}
}

func TestRefreshBlanksWhenNothingActive(t *testing.T) {
	loop, renderer, svc, cfg := newLoop(t)
	record := makeReady(t, svc, cfg, "a.jpg")
	if err := svc.SetActive(context.Background(), record.Slug); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	loop.Refresh(context.Background())

	if err := svc.SetActive(context.Background(), ""); err != nil {
		t.Fatalf("clear active: %v", err)
	}
	loop.Refresh(context.Background())
	loop.Refresh(context.Background())

	_, blanks := renderer.snapshot()
	if blanks != 1 {
		t.Fatalf("blanks = %d, want 1", blanks)
	}
}
