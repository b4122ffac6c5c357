// Package tracker enforces the at-most-one-job-per-slug rule for the
// conversion pipeline. Acquiring a slug hands back a token tied to a
// unique job id; the slug stays claimed until that token is released.
package tracker

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"frameloop/internal/catalog"
)

// Token represents an exclusive claim on a slug. Only the holder of
// the token can release the claim.
type Token struct {
	slug  string
	jobID string
}

// Slug returns the claimed slug.
func (t *Token) Slug() string {
	if t == nil {
		return ""
	}
	return t.slug
}

// JobID returns the unique id assigned to this claim.
func (t *Token) JobID() string {
	if t == nil {
		return ""
	}
	return t.jobID
}

// Tracker records which slugs have a conversion job in flight.
type Tracker struct {
	mu       sync.Mutex
	inFlight map[string]string
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{inFlight: make(map[string]string)}
}

// TryAcquire claims the slug for a new job. If another job already
// holds the slug it returns ErrAlreadyInFlight and no token.
func (t *Tracker) TryAcquire(slug string) (*Token, error) {
	if slug == "" {
		return nil, catalog.Wrap(catalog.ErrValidation, "acquire", "slug is required", nil)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if jobID, ok := t.inFlight[slug]; ok {
		return nil, catalog.Wrap(catalog.ErrAlreadyInFlight, "acquire",
			"slug "+slug+" already claimed by job "+jobID, nil)
	}
	token := &Token{slug: slug, jobID: uuid.NewString()}
	t.inFlight[slug] = token.jobID
	return token, nil
}

// Release frees the slug claimed by token. Releasing a stale token
// (the slug was re-acquired by a newer job) is a no-op.
func (t *Tracker) Release(token *Token) {
	if token == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if jobID, ok := t.inFlight[token.slug]; ok && jobID == token.jobID {
		delete(t.inFlight, token.slug)
	}
}

// Held reports whether the slug currently has a job in flight.
func (t *Tracker) Held(slug string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inFlight[slug]
	return ok
}

// InFlight returns a copy of the current slug -> job id claims.
func (t *Tracker) InFlight() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.inFlight))
	for slug, jobID := range t.inFlight {
		out[slug] = jobID
	}
	return out
}

// Slugs returns the claimed slugs in sorted order.
func (t *Tracker) Slugs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.inFlight))
	for slug := range t.inFlight {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
