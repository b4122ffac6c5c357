package catalog

import (
	"errors"
	"reflect"
	"testing"
)

func loopCatalog(slugs ...string) *Catalog {
	cat := NewCatalog()
	for _, slug := range slugs {
		cat.Media[slug] = &MediaRecord{Slug: slug, Kind: KindImage, RawPath: "/raw/" + slug, Status: StatusReady}
		cat.Loop = append(cat.Loop, slug)
	}
	return cat
}

func TestAppendLoopIgnoresDuplicates(t *testing.T) {
	cat := loopCatalog("a", "b")
	AppendLoop(cat, "b")
	if !reflect.DeepEqual(cat.Loop, []string{"a", "b"}) {
		t.Fatalf("unexpected loop %v", cat.Loop)
	}
	cat.Media["c"] = &MediaRecord{Slug: "c", Kind: KindImage, RawPath: "/raw/c", Status: StatusPending}
	AppendLoop(cat, "c")
	if !reflect.DeepEqual(cat.Loop, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected loop %v", cat.Loop)
	}
}

func TestRemoveFromLoopSelectsSuccessor(t *testing.T) {
	cases := []struct {
		name       string
		loop       []string
		active     string
		remove     string
		wantLoop   []string
		wantActive string
	}{
		{"middle active", []string{"a", "b", "c"}, "b", "b", []string{"a", "c"}, "c"},
		{"last active wraps", []string{"a", "b"}, "b", "b", []string{"a"}, "a"},
		{"not active untouched", []string{"a", "b"}, "a", "b", []string{"a"}, "a"},
		{"loop empties", []string{"a"}, "a", "a", []string{}, ""},
		{"absent slug no-op", []string{"a"}, "a", "x", []string{"a"}, "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat := loopCatalog(tc.loop...)
			cat.Active = tc.active
			RemoveFromLoop(cat, tc.remove)
			if len(cat.Loop) != len(tc.wantLoop) {
				t.Fatalf("unexpected loop %v, want %v", cat.Loop, tc.wantLoop)
			}
			for i := range tc.wantLoop {
				if cat.Loop[i] != tc.wantLoop[i] {
					t.Fatalf("unexpected loop %v, want %v", cat.Loop, tc.wantLoop)
				}
			}
			if cat.Active != tc.wantActive {
				t.Fatalf("unexpected active %q, want %q", cat.Active, tc.wantActive)
			}
		})
	}
}

func TestReorderLoopRequiresPermutation(t *testing.T) {
	cat := loopCatalog("a", "b")

	if err := ReorderLoop(cat, []string{"b", "a"}); err != nil {
		t.Fatalf("expected valid reorder, got %v", err)
	}
	if !reflect.DeepEqual(cat.Loop, []string{"b", "a"}) {
		t.Fatalf("unexpected loop %v", cat.Loop)
	}

	for name, order := range map[string][]string{
		"missing entry": {"a"},
		"unknown entry": {"a", "x"},
		"duplicate":     {"a", "a"},
	} {
		if err := ReorderLoop(cat, order); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", name, err)
		}
	}
	// Rejected orders leave the loop untouched.
	if !reflect.DeepEqual(cat.Loop, []string{"b", "a"}) {
		t.Fatalf("loop mutated on rejected reorder: %v", cat.Loop)
	}
}

func TestAdvanceWraps(t *testing.T) {
	cat := loopCatalog("a", "b", "c")

	Advance(cat)
	if cat.Active != "a" {
		t.Fatalf("expected first entry, got %q", cat.Active)
	}
	Advance(cat)
	Advance(cat)
	Advance(cat)
	if cat.Active != "a" {
		t.Fatalf("expected wrap to a, got %q", cat.Active)
	}

	empty := NewCatalog()
	Advance(empty)
	if empty.Active != "" {
		t.Fatalf("advance on empty loop set active %q", empty.Active)
	}
}

func TestSetActive(t *testing.T) {
	cat := loopCatalog("a", "b")

	if err := SetActive(cat, "b"); err != nil || cat.Active != "b" {
		t.Fatalf("SetActive failed: %v active=%q", err, cat.Active)
	}
	if err := SetActive(cat, ""); err != nil || cat.Active != "" {
		t.Fatalf("expected clearing active, got %v active=%q", err, cat.Active)
	}
	if err := SetActive(cat, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown slug, got %v", err)
	}

	cat.Media["c"] = &MediaRecord{Slug: "c", Kind: KindImage, RawPath: "/raw/c", Status: StatusPending}
	if err := SetActive(cat, "c"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for slug outside loop, got %v", err)
	}
}
