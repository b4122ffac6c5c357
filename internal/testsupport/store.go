package testsupport

import (
	"context"
	"testing"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord inserts a pending record and appends it to the loop.
func SeedRecord(t testing.TB, store *catalog.Store, slug string, kind catalog.Kind) *catalog.MediaRecord {
	t.Helper()

	var record *catalog.MediaRecord
	_, err := store.Commit(context.Background(), func(cat *catalog.Catalog) error {
		record = &catalog.MediaRecord{
			Slug:    slug,
			Kind:    kind,
			RawPath: "/raw/" + slug,
			Status:  catalog.StatusPending,
		}
		cat.Media[slug] = record
		catalog.AppendLoop(cat, slug)
		return nil
	})
	if err != nil {
		t.Fatalf("seed record %s: %v", slug, err)
	}
	return record
}
