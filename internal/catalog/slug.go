package catalog

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a stable identifier from a media file name:
// lowercase ASCII, diacritics stripped, runs of other characters
// collapsed to single hyphens.
func Slugify(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if folded, _, err := transform.String(slugFold, base); err == nil {
		base = folded
	}
	base = strings.ToLower(base)

	var b strings.Builder
	b.Grow(len(base))
	lastHyphen := true
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "media-" + shortID()
	}
	return slug
}

// UniqueSlug returns a slug for name that is not already taken,
// suffixing a short random id on collision.
func UniqueSlug(name string, taken func(string) bool) string {
	slug := Slugify(name)
	if taken == nil || !taken(slug) {
		return slug
	}
	for {
		candidate := slug + "-" + shortID()
		if !taken(candidate) {
			return candidate
		}
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}
