package converter

import (
	"strings"
	"sync"
)

const maxStderrLines = 12

// tailBuffer is an io.Writer that retains only the last few lines
// written to it. ffmpeg is chatty on stderr; the useful part of a
// failure is almost always at the end.
type tailBuffer struct {
	mu      sync.Mutex
	limit   int
	lines   []string
	partial strings.Builder
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = 1
	}
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range string(p) {
		if c == '\n' || c == '\r' {
			b.flushLine()
			continue
		}
		b.partial.WriteRune(c)
	}
	return len(p), nil
}

func (b *tailBuffer) flushLine() {
	line := strings.TrimSpace(b.partial.String())
	b.partial.Reset()
	if line == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.partial.Len() > 0 {
		b.flushLine()
	}
	return strings.Join(b.lines, "; ")
}
