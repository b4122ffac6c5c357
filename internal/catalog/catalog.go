package catalog

import (
	"fmt"
	"time"
)

// Catalog is the full persisted aggregate: the media map, the playback
// loop, the active pointer, and the last commit timestamp.
type Catalog struct {
	Media       map[string]*MediaRecord
	Loop        []string
	Active      string
	LastUpdated time.Time
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{Media: make(map[string]*MediaRecord)}
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	cp := &Catalog{
		Media:       make(map[string]*MediaRecord, len(c.Media)),
		Loop:        append([]string(nil), c.Loop...),
		Active:      c.Active,
		LastUpdated: c.LastUpdated,
	}
	for slug, record := range c.Media {
		cp.Media[slug] = record.Clone()
	}
	return cp
}

// Validate checks the aggregate invariants. It never mutates the
// catalog; Store.Commit calls it before any write becomes visible.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Loop))
	for _, slug := range c.Loop {
		if slug == "" {
			return Wrap(ErrValidation, "catalog", "loop contains an empty slug", nil)
		}
		if _, ok := c.Media[slug]; !ok {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("loop references unknown slug %q", slug), nil)
		}
		if _, dup := seen[slug]; dup {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("loop contains duplicate slug %q", slug), nil)
		}
		seen[slug] = struct{}{}
	}

	if c.Active != "" {
		if _, ok := seen[c.Active]; !ok {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("active slug %q is not in the loop", c.Active), nil)
		}
	}

	for slug, record := range c.Media {
		if record == nil {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("nil record for slug %q", slug), nil)
		}
		if record.Slug != slug {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("record slug %q stored under key %q", record.Slug, slug), nil)
		}
		if _, ok := ParseStatus(string(record.Status)); !ok {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("record %q has unknown status %q", slug, record.Status), nil)
		}
		if _, ok := ParseKind(string(record.Kind)); !ok {
			return Wrap(ErrValidation, "catalog", fmt.Sprintf("record %q has unknown kind %q", slug, record.Kind), nil)
		}
	}
	return nil
}

// Record returns the media record for slug, or nil.
func (c *Catalog) Record(slug string) *MediaRecord {
	if c == nil {
		return nil
	}
	return c.Media[slug]
}

// ActiveRecord returns the record the active pointer selects, or nil.
func (c *Catalog) ActiveRecord() *MediaRecord {
	if c == nil || c.Active == "" {
		return nil
	}
	return c.Media[c.Active]
}
