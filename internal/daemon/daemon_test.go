package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"frameloop/internal/api"
	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/converter"
	"frameloop/internal/daemon"
	"frameloop/internal/facade"
	"frameloop/internal/pipeline"
	"frameloop/internal/testsupport"
	"frameloop/internal/tracker"
)

type instantConverter struct{}

func (instantConverter) Convert(ctx context.Context, req converter.Request) (*converter.Result, error) {
	return &converter.Result{
		OutputPath: filepath.Join(req.OutputDir, req.Slug+".jpg"),
		Metadata:   catalog.Metadata{Width: 64, Height: 64},
	}, nil
}

func startDaemon(t *testing.T) (*daemon.Daemon, *api.Client, *facade.Service, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	svc := facade.New(cfg, store, tracker.New(), nil)
	p := pipeline.New(cfg, svc, instantConverter{}, nil)

	d, err := daemon.New(cfg, svc, nil, daemon.Options{Pipeline: p})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("api server has no address")
	}
	return d, api.NewClient(addr), svc, cfg
}

func TestDaemonSingleInstance(t *testing.T) {
	d, _, svc, cfg := startDaemon(t)
	_ = d

	second, err := daemon.New(cfg, svc, nil, daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIEndToEnd(t *testing.T) {
	_, client, _, cfg := startDaemon(t)
	ctx := context.Background()

	// Empty catalog state.
	state, err := client.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(state.Media) != 0 || state.Active != "" {
		t.Fatalf("unexpected initial state %+v", state)
	}

	// Add two files and wait for the pipeline to finish them.
	pathA := filepath.Join(cfg.Paths.MediaDir, "a.jpg")
	pathB := filepath.Join(cfg.Paths.MediaDir, "b.jpg")
	testsupport.WriteMediaFile(t, pathA, 64)
	testsupport.WriteMediaFile(t, pathB, 64)

	added, err := client.Add(ctx, pathA)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.Slug != "a" || added.Status != "pending" {
		t.Fatalf("unexpected add response %+v", added)
	}
	if _, err := client.Add(ctx, pathB); err != nil {
		t.Fatalf("Add b: %v", err)
	}

	waitForAPIStatus(t, client, "a", "ready")
	waitForAPIStatus(t, client, "b", "ready")

	// Activate and advance through the loop.
	if err := client.SetActive(ctx, "a"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, err := client.Advance(ctx)
	if err != nil || active != "b" {
		t.Fatalf("Advance = %q, %v", active, err)
	}

	// Reorder, then validate errors map onto sentinels.
	if err := client.Reorder(ctx, []string{"b", "a"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if err := client.Reorder(ctx, []string{"b"}); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := client.SetActive(ctx, "ghost"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := client.Retry(ctx, "a"); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation for ready record, got %v", err)
	}

	// Remove and verify the successor became active.
	if err := client.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	state, err = client.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Active != "a" || len(state.Loop) != 1 {
		t.Fatalf("unexpected state after removal: active=%q loop=%v", state.Active, state.Loop)
	}
	if err := client.Remove(ctx, "b"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Health endpoint.
	health, err := client.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !health.Running || !health.Store.DatabaseReadable {
		t.Fatalf("unexpected health %+v", health)
	}
}

func waitForAPIStatus(t *testing.T, client *api.Client, slug, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := client.State(context.Background())
		if err == nil {
			for _, view := range state.Media {
				if view.Slug == slug && view.Status == want {
					return
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("slug %s never reached %s", slug, want)
}
