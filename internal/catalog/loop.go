package catalog

import "fmt"

// Loop sequencer: deterministic, storage-free functions over a catalog
// working copy. Callers apply them inside Store.Commit so the result
// becomes visible atomically or not at all.

// AppendLoop adds slug to the end of the loop. Already-present slugs
// are left where they are.
func AppendLoop(c *Catalog, slug string) {
	for _, existing := range c.Loop {
		if existing == slug {
			return
		}
	}
	c.Loop = append(c.Loop, slug)
}

// RemoveFromLoop removes slug from the loop. When the removed slug was
// active, the successor is the entry that followed it in loop order,
// wrapping to the front; active clears when the loop empties.
func RemoveFromLoop(c *Catalog, slug string) {
	index := -1
	for i, existing := range c.Loop {
		if existing == slug {
			index = i
			break
		}
	}
	if index < 0 {
		return
	}

	c.Loop = append(c.Loop[:index], c.Loop[index+1:]...)
	if c.Active != slug {
		return
	}
	if len(c.Loop) == 0 {
		c.Active = ""
		return
	}
	c.Active = c.Loop[index%len(c.Loop)]
}

// ReorderLoop replaces the loop wholesale. The new order must be a
// permutation of the current membership; anything else is rejected
// without mutation.
func ReorderLoop(c *Catalog, newOrder []string) error {
	if len(newOrder) != len(c.Loop) {
		return Wrap(ErrValidation, "reorder", fmt.Sprintf("new order has %d entries, loop has %d", len(newOrder), len(c.Loop)), nil)
	}
	current := make(map[string]struct{}, len(c.Loop))
	for _, slug := range c.Loop {
		current[slug] = struct{}{}
	}
	seen := make(map[string]struct{}, len(newOrder))
	for _, slug := range newOrder {
		if _, ok := current[slug]; !ok {
			return Wrap(ErrValidation, "reorder", fmt.Sprintf("slug %q is not in the loop", slug), nil)
		}
		if _, dup := seen[slug]; dup {
			return Wrap(ErrValidation, "reorder", fmt.Sprintf("slug %q appears more than once", slug), nil)
		}
		seen[slug] = struct{}{}
	}
	c.Loop = append([]string(nil), newOrder...)
	return nil
}

// Advance moves the active pointer to the next loop entry, wrapping.
// With no active set it selects the first entry; an empty loop is a
// no-op.
func Advance(c *Catalog) {
	if len(c.Loop) == 0 {
		return
	}
	if c.Active == "" {
		c.Active = c.Loop[0]
		return
	}
	for i, slug := range c.Loop {
		if slug == c.Active {
			c.Active = c.Loop[(i+1)%len(c.Loop)]
			return
		}
	}
	// Active not in loop should never survive a commit; recover anyway.
	c.Active = c.Loop[0]
}

// SetActive points the active pointer at slug.
func SetActive(c *Catalog, slug string) error {
	if slug == "" {
		c.Active = ""
		return nil
	}
	if _, ok := c.Media[slug]; !ok {
		return Wrap(ErrNotFound, "set active", fmt.Sprintf("unknown slug %q", slug), nil)
	}
	for _, existing := range c.Loop {
		if existing == slug {
			c.Active = slug
			return nil
		}
	}
	return Wrap(ErrValidation, "set active", fmt.Sprintf("slug %q is not in the loop", slug), nil)
}
