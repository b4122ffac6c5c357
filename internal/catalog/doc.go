// Package catalog is the single source of truth for the media catalog:
// the record model, the playback loop, and the SQLite-backed store.
//
// All mutation flows through Store.Commit, which loads the full
// aggregate, applies a caller-supplied mutator, checks the catalog
// invariants, and writes the result back in one transaction. Loop
// ordering and active-pointer logic live in pure functions so they can
// be tested without a database and applied atomically by callers.
//
// Invariants enforced on every commit:
//   - every slug in the loop has a media record
//   - the loop contains no duplicates
//   - the active slug, when set, is a member of the loop
//   - record statuses only move forward (pending, processing,
//     ready/failed), with failed returning to pending only via an
//     explicit retry
package catalog
