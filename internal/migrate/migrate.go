// Package migrate imports the legacy JSON frame index into the
// catalog store. The import runs once: a store that already holds
// records is left untouched, so the daemon can invoke it on every
// startup.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/logging"
)

// legacyIndex mirrors the JSON file the previous frame software kept
// next to its media directory. last_updated is a unix timestamp (or
// null) and processing held transient job state; neither survives the
// import, so both are decoded loosely and dropped.
type legacyIndex struct {
	Media       map[string]legacyRecord `json:"media"`
	Loop        []string                `json:"loop"`
	Active      string                  `json:"active"`
	LastUpdated json.Number             `json:"last_updated"`
	Processing  map[string]any          `json:"processing"`
}

type legacyRecord struct {
	Kind          string            `json:"kind"`
	RawPath       string            `json:"raw_path"`
	ProcessedPath string            `json:"processed_path"`
	Status        string            `json:"status"`
	CreatedAt     string            `json:"created_at"`
	Metadata      map[string]string `json:"metadata"`
}

// Run imports the legacy index if the store is empty and a legacy file
// exists. It returns the number of imported records; zero with a nil
// error means there was nothing to do.
func Run(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "migrate")

	path := cfg.LegacyIndexPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read legacy index: %w", err)
	}

	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if len(snapshot.Media) > 0 {
		logger.Debug("store already populated, skipping legacy import",
			logging.String("path", path))
		return 0, nil
	}

	var index legacyIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return 0, catalog.Wrap(catalog.ErrValidation, "migrate",
			fmt.Sprintf("legacy index %q is not valid JSON", path), err)
	}
	if len(index.Media) == 0 {
		return 0, nil
	}

	imported := 0
	_, err = store.Commit(ctx, func(cat *catalog.Catalog) error {
		imported = 0
		for slug, legacy := range index.Media {
			record, convErr := convertRecord(slug, legacy)
			if convErr != nil {
				return convErr
			}
			cat.Media[slug] = record
			imported++
		}
		cat.Loop = append([]string(nil), index.Loop...)
		cat.Active = index.Active
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("legacy index imported",
		logging.String("path", path),
		logging.Int("records", imported))
	return imported, nil
}

// convertRecord maps a legacy entry onto a MediaRecord. Entries that
// were already processed arrive ready; anything else re-enters the
// pipeline as pending.
func convertRecord(slug string, legacy legacyRecord) (*catalog.MediaRecord, error) {
	if slug == "" {
		return nil, catalog.Wrap(catalog.ErrValidation, "migrate", "legacy entry with empty slug", nil)
	}
	kind, ok := catalog.ParseKind(legacy.Kind)
	if !ok {
		return nil, catalog.Wrap(catalog.ErrValidation, "migrate",
			fmt.Sprintf("legacy entry %q has unknown kind %q", slug, legacy.Kind), nil)
	}
	if legacy.RawPath == "" {
		return nil, catalog.Wrap(catalog.ErrValidation, "migrate",
			fmt.Sprintf("legacy entry %q has no raw path", slug), nil)
	}

	record := &catalog.MediaRecord{
		Slug:    slug,
		Kind:    kind,
		RawPath: legacy.RawPath,
		Status:  catalog.StatusPending,
	}
	if legacy.ProcessedPath != "" && legacy.Status != "failed" {
		record.Status = catalog.StatusReady
		record.ProcessedPath = legacy.ProcessedPath
	}
	if legacy.CreatedAt != "" {
		if created, parseErr := time.Parse(time.RFC3339, legacy.CreatedAt); parseErr == nil {
			record.CreatedAt = created.UTC()
		}
	}
	if name := legacy.Metadata["source_name"]; name != "" {
		record.Metadata.SourceName = name
	}
	return record, nil
}
