package catalog

import (
	"strings"
	"time"
)

// Kind distinguishes still images from videos.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case KindImage, KindVideo:
		return normalized, true
	}
	return "", false
}

// Status represents the conversion lifecycle of a media record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusReady, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step. Failed records return to pending only through an
// explicit retry; ready is terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusReady || next == StatusFailed
	case StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// Metadata carries descriptive fields extracted during conversion.
// None of them participate in ordering or active-pointer logic.
type Metadata struct {
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Checksum        string  `json:"checksum,omitempty"`
	SourceName      string  `json:"source_name,omitempty"`
}

// IsZero reports whether no metadata fields are populated.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// MediaRecord is one physical asset in the catalog.
type MediaRecord struct {
	Slug          string
	Kind          Kind
	RawPath       string
	ProcessedPath string
	Status        Status
	ErrorMessage  string
	Metadata      Metadata
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of the record.
func (r *MediaRecord) Clone() *MediaRecord {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// IsReady reports whether the record has a display-ready rendition.
func (r *MediaRecord) IsReady() bool {
	return r != nil && r.Status == StatusReady && r.ProcessedPath != ""
}
