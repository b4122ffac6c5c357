// Package api defines the JSON payloads shared by the daemon's HTTP
// surface and the CLI client.
package api

import (
	"sort"
	"time"

	"frameloop/internal/catalog"
	"frameloop/internal/facade"
)

// MediaView is the wire representation of a catalog record.
type MediaView struct {
	Slug          string    `json:"slug"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	RawPath       string    `json:"raw_path"`
	ProcessedPath string    `json:"processed_path,omitempty"`
	ErrorMessage  string    `json:"error,omitempty"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	Duration      float64   `json:"duration_seconds,omitempty"`
	SourceName    string    `json:"source_name,omitempty"`
	JobID         string    `json:"job_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateResponse is the full catalog state returned by GET /api/state.
type StateResponse struct {
	Active      string            `json:"active"`
	LastUpdated time.Time         `json:"last_updated"`
	Loop        []string          `json:"loop"`
	Media       []MediaView       `json:"media"`
	Processing  map[string]string `json:"processing,omitempty"`
	Stats       map[string]int    `json:"stats"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Running  bool                `json:"running"`
	PID      int                 `json:"pid"`
	Store    catalog.StoreHealth `json:"store"`
	InFlight int                 `json:"in_flight"`
}

// AddRequest registers a file already on the frame's filesystem.
type AddRequest struct {
	Path string `json:"path"`
}

// ActiveRequest points the display at a slug; empty clears it.
type ActiveRequest struct {
	Slug string `json:"slug"`
}

// LoopRequest replaces the loop order.
type LoopRequest struct {
	Order []string `json:"order"`
}

// AdvanceResponse reports the active slug after an advance.
type AdvanceResponse struct {
	Active string `json:"active"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromRecord converts a catalog record to its wire form.
func FromRecord(record *catalog.MediaRecord) MediaView {
	return MediaView{
		Slug:          record.Slug,
		Kind:          string(record.Kind),
		Status:        string(record.Status),
		RawPath:       record.RawPath,
		ProcessedPath: record.ProcessedPath,
		ErrorMessage:  record.ErrorMessage,
		Width:         record.Metadata.Width,
		Height:        record.Metadata.Height,
		Duration:      record.Metadata.DurationSeconds,
		SourceName:    record.Metadata.SourceName,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// FromState converts a facade state snapshot to its wire form. Media
// entries are sorted by slug; records with a job in flight carry its
// id.
func FromState(state *facade.State) StateResponse {
	media := make([]MediaView, 0, len(state.Catalog.Media))
	for _, record := range state.Catalog.Media {
		view := FromRecord(record)
		view.JobID = state.Processing[record.Slug]
		media = append(media, view)
	}
	sort.Slice(media, func(i, j int) bool { return media[i].Slug < media[j].Slug })

	stats := make(map[string]int, len(state.Stats))
	for status, count := range state.Stats {
		stats[string(status)] = count
	}

	return StateResponse{
		Active:      state.Catalog.Active,
		LastUpdated: state.Catalog.LastUpdated,
		Loop:        append([]string(nil), state.Catalog.Loop...),
		Media:       media,
		Processing:  state.Processing,
		Stats:       stats,
	}
}
