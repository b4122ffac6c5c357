package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	metaKeyActive      = "active"
	metaKeyLastUpdated = "last_updated"
)

// Snapshot returns a consistent point-in-time copy of the aggregate.
// Readers never block writers; the copy is safe to mutate.
func (s *Store) Snapshot(ctx context.Context) (*Catalog, error) {
	ctx = ensureContext(ctx)
	var cat *Catalog
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin snapshot tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		loaded, err := loadCatalog(ctx, tx)
		if err != nil {
			return err
		}
		cat = loaded
		return nil
	})
	if err != nil {
		return nil, Wrap(ErrUnavailable, "snapshot", "read catalog", err)
	}
	return cat, nil
}

// Commit executes mutate against a working copy of the catalog inside
// a single transaction. The result is validated against the aggregate
// invariants before anything is written; on any error the transaction
// rolls back and no partial state becomes visible. Every changed
// record gets its updated_at bumped, and status changes must follow
// the record lifecycle.
func (s *Store) Commit(ctx context.Context, mutate func(*Catalog) error) (*Catalog, error) {
	ctx = ensureContext(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var result *Catalog
	err := retryOnBusy(ctx, func() error {
		committed, commitErr := s.commitOnce(ctx, mutate)
		if commitErr != nil {
			return commitErr
		}
		result = committed
		return nil
	})
	if err != nil {
		if isCatalogError(err) {
			return nil, err
		}
		return nil, Wrap(ErrUnavailable, "commit", "write catalog", err)
	}
	return result, nil
}

func (s *Store) commitOnce(ctx context.Context, mutate func(*Catalog) error) (*Catalog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cat, err := loadCatalog(ctx, tx)
	if err != nil {
		return nil, err
	}
	before := cat.Clone()

	if err := mutate(cat); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := stampChanges(before, cat, now); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	cat.LastUpdated = now

	if err := writeCatalog(ctx, tx, cat); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit catalog tx: %w", err)
	}
	return cat.Clone(), nil
}

// stampChanges bumps updated_at on every created or modified record
// and rejects lifecycle violations (I4).
func stampChanges(before, after *Catalog, now time.Time) error {
	for slug, record := range after.Media {
		if record == nil {
			continue
		}
		orig := before.Media[slug]
		if orig == nil {
			if record.Status == StatusProcessing {
				return Wrap(ErrValidation, "commit", fmt.Sprintf("new record %q cannot start in processing", slug), nil)
			}
			if record.CreatedAt.IsZero() {
				record.CreatedAt = now
			}
			record.UpdatedAt = now
			continue
		}
		if *orig == *record {
			continue
		}
		if orig.Status != record.Status && !orig.Status.CanTransition(record.Status) {
			return Wrap(ErrValidation, "commit",
				fmt.Sprintf("record %q cannot move from %s to %s", slug, orig.Status, record.Status), nil)
		}
		record.UpdatedAt = now
	}
	return nil
}

// Get fetches a single record by slug.
func (s *Store) Get(ctx context.Context, slug string) (*MediaRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM media_records WHERE slug = ?`, slug)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Wrap(ErrNotFound, "get", fmt.Sprintf("slug %q", slug), nil)
	}
	if err != nil {
		return nil, Wrap(ErrUnavailable, "get", "read record", err)
	}
	return record, nil
}

// Put upserts a record. The record's UpdatedAt must match the stored
// version (the value the caller read); a mismatch returns ErrConflict
// without writing.
func (s *Store) Put(ctx context.Context, record *MediaRecord) (*MediaRecord, error) {
	if record == nil || record.Slug == "" {
		return nil, Wrap(ErrValidation, "put", "record with a slug is required", nil)
	}
	expected := record.UpdatedAt
	var saved *MediaRecord
	_, err := s.Commit(ctx, func(cat *Catalog) error {
		if existing := cat.Media[record.Slug]; existing != nil && !existing.UpdatedAt.Equal(expected) {
			return Wrap(ErrConflict, "put", fmt.Sprintf("record %q changed since read", record.Slug), nil)
		}
		saved = record.Clone()
		cat.Media[record.Slug] = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved.Clone(), nil
}

// Delete removes a record. The caller is responsible for removing the
// slug from the loop in the same Commit; a bare Delete of a record
// still referenced by the loop fails the invariant check.
func (s *Store) Delete(ctx context.Context, slug string) error {
	_, err := s.Commit(ctx, func(cat *Catalog) error {
		if _, ok := cat.Media[slug]; !ok {
			return Wrap(ErrNotFound, "delete", fmt.Sprintf("slug %q", slug), nil)
		}
		delete(cat.Media, slug)
		return nil
	})
	return err
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM media_records GROUP BY status`)
	if err != nil {
		return nil, Wrap(ErrUnavailable, "stats", "query counts", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, Wrap(ErrUnavailable, "stats", "scan counts", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrUnavailable, "stats", "iterate counts", err)
	}
	return stats, nil
}

func isCatalogError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyInFlight)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadCatalog(ctx context.Context, q queryer) (*Catalog, error) {
	cat := NewCatalog()

	rows, err := q.QueryContext(ctx, `SELECT `+recordColumns+` FROM media_records`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		cat.Media[record.Slug] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	loopRows, err := q.QueryContext(ctx, `SELECT slug FROM loop_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query loop: %w", err)
	}
	defer loopRows.Close()
	for loopRows.Next() {
		var slug string
		if err := loopRows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan loop entry: %w", err)
		}
		cat.Loop = append(cat.Loop, slug)
	}
	if err := loopRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loop: %w", err)
	}

	metaRows, err := q.QueryContext(ctx, `SELECT key, value FROM catalog_meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var key, value string
		if err := metaRows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		switch key {
		case metaKeyActive:
			cat.Active = value
		case metaKeyLastUpdated:
			if ts, err := parseTimeString(value); err == nil {
				cat.LastUpdated = ts
			}
		}
	}
	if err := metaRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meta: %w", err)
	}

	return cat, nil
}

func writeCatalog(ctx context.Context, tx *sql.Tx, cat *Catalog) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM loop_entries`); err != nil {
		return fmt.Errorf("clear loop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media_records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	for _, record := range cat.Media {
		metadataJSON, err := marshalMetadata(record.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", record.Slug, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO media_records (
                slug, kind, raw_path, processed_path, status,
                error_message, metadata_json, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Slug,
			string(record.Kind),
			record.RawPath,
			nullableString(record.ProcessedPath),
			string(record.Status),
			nullableString(record.ErrorMessage),
			nullableString(metadataJSON),
			record.CreatedAt.Format(time.RFC3339Nano),
			record.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert record %q: %w", record.Slug, err)
		}
	}

	for position, slug := range cat.Loop {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loop_entries (position, slug) VALUES (?, ?)`, position, slug); err != nil {
			return fmt.Errorf("insert loop entry %q: %w", slug, err)
		}
	}

	meta := map[string]string{
		metaKeyActive:      cat.Active,
		metaKeyLastUpdated: cat.LastUpdated.Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_meta (key, value) VALUES (?, ?)
             ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("upsert meta %q: %w", key, err)
		}
	}
	return nil
}

const recordColumns = "slug, kind, raw_path, processed_path, status, error_message, metadata_json, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*MediaRecord, error) {
	var (
		slug          string
		kind          string
		rawPath       string
		processedPath sql.NullString
		status        string
		errorMessage  sql.NullString
		metadataJSON  sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&slug,
		&kind,
		&rawPath,
		&processedPath,
		&status,
		&errorMessage,
		&metadataJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &MediaRecord{
		Slug:          slug,
		Kind:          Kind(kind),
		RawPath:       rawPath,
		ProcessedPath: processedPath.String,
		Status:        Status(status),
		ErrorMessage:  errorMessage.String,
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %q: %w", slug, err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func marshalMetadata(meta Metadata) (string, error) {
	if meta.IsZero() {
		return "", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
