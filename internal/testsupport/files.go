package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var fillerMarker = []byte("frameloop ")

// WriteMediaFile creates path with size bytes of filler so ingestion
// tests have a real file to move, probe, and checksum. Parent
// directories are created as needed; a size below 1 still produces a
// non-empty file.
func WriteMediaFile(t testing.TB, path string, size int) {
	t.Helper()

	if size < 1 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	payload := bytes.Repeat(fillerMarker, size/len(fillerMarker)+1)[:size]
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
