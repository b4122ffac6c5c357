// Package daemon coordinates the long-running frameloop process.
//
// It wires configuration, the catalog store, the conversion pipeline,
// the inbox watcher, the display loop and the HTTP API into a single
// lifecycle with flock-based locking to prevent multiple instances.
//
// Keep orchestration logic here: the individual behaviours live in
// their own packages while the daemon focuses on startup, shutdown and
// high level coordination.
package daemon
