package catalog

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Holiday Photo.JPG", "holiday-photo"},
		{"/mnt/usb/IMG_2024-07-04.jpeg", "img-2024-07-04"},
		{"Café München.png", "cafe-munchen"},
		{"clip__final--v2.mp4", "clip-final-v2"},
		{"---.mp4", ""},
	}
	for _, tc := range cases {
		got := Slugify(tc.in)
		if tc.want == "" {
			if !strings.HasPrefix(got, "media-") {
				t.Fatalf("Slugify(%q) = %q, expected generated fallback", tc.in, got)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueSlugSuffixesOnCollision(t *testing.T) {
	taken := map[string]bool{"sunset": true}
	got := UniqueSlug("sunset.jpg", func(s string) bool { return taken[s] })
	if got == "sunset" {
		t.Fatal("expected suffixed slug on collision")
	}
	if !strings.HasPrefix(got, "sunset-") {
		t.Fatalf("unexpected slug %q", got)
	}

	if got := UniqueSlug("sunrise.jpg", func(s string) bool { return taken[s] }); got != "sunrise" {
		t.Fatalf("expected plain slug, got %q", got)
	}
}
