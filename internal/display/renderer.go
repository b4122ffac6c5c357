package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"frameloop/internal/catalog"
)

// SymlinkRenderer publishes the active artifact as a stable symlink.
// The actual viewer process (fbi, mpv, a kiosk browser) watches the
// link and redraws when it changes; keeping that contract at the
// filesystem level means the daemon never cares which viewer is
// installed.
type SymlinkRenderer struct {
	linkPath string
}

// NewSymlinkRenderer creates a renderer that maintains dir/current.
func NewSymlinkRenderer(dir string) *SymlinkRenderer {
	return &SymlinkRenderer{linkPath: filepath.Join(dir, "current")}
}

// LinkPath returns the published symlink location.
func (r *SymlinkRenderer) LinkPath() string {
	return r.linkPath
}

// Show atomically repoints the symlink at the record's artifact.
func (r *SymlinkRenderer) Show(ctx context.Context, record *catalog.MediaRecord) error {
	if record == nil || record.ProcessedPath == "" {
		return errors.New("record has no artifact")
	}
	tmp := r.linkPath + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear stale link: %w", err)
	}
	if err := os.Symlink(record.ProcessedPath, tmp); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	if err := os.Rename(tmp, r.linkPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish link: %w", err)
	}
	return nil
}

// Blank removes the symlink so the viewer falls back to its idle
// screen.
func (r *SymlinkRenderer) Blank(ctx context.Context) error {
	if err := os.Remove(r.linkPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}

var _ Renderer = (*SymlinkRenderer)(nil)
