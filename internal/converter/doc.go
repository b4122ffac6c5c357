// Package converter shells out to ffmpeg to render raw media into
// panel-sized artifacts the display can show directly.
//
// It exposes a Client interface, a CLI implementation that launches
// ffmpeg/ffprobe, and probing helpers that extract dimensions, duration
// and a content checksum before conversion. Tests can swap in fakes to
// exercise pipeline behaviour without a real encoder.
package converter
