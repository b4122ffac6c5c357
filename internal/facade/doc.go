// Package facade exposes the catalog operations the daemon, API and
// CLI consume. It composes the record store, the loop sequencer and
// the in-flight tracker so callers get whole-catalog semantics: adding
// media registers the record, appends it to the loop and wakes the
// pipeline in one call.
package facade
