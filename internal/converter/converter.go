package converter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
)

var commandContext = exec.CommandContext

// Request describes a single conversion job.
type Request struct {
	Slug      string
	Kind      catalog.Kind
	InputPath string
	OutputDir string
}

// Result carries the artifact path and probed metadata for a finished
// conversion.
type Result struct {
	OutputPath string
	Metadata   catalog.Metadata
}

// Client defines conversion behaviour.
type Client interface {
	Convert(ctx context.Context, req Request) (*Result, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithFFmpeg overrides the default ffmpeg binary.
func WithFFmpeg(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffmpeg = binary
		}
	}
}

// WithFFprobe overrides the default ffprobe binary.
func WithFFprobe(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffprobe = binary
		}
	}
}

// WithTargetSize overrides the panel dimensions conversions scale to.
func WithTargetSize(width, height int) Option {
	return func(c *CLI) {
		if width > 0 && height > 0 {
			c.width = width
			c.height = height
		}
	}
}

// CLI wraps the ffmpeg command-line tools.
type CLI struct {
	ffmpeg  string
	ffprobe string
	width   int
	height  int
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe", width: 1024, height: 600}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// FromConfig constructs a CLI client from daemon configuration.
func FromConfig(cfg *config.Config) *CLI {
	return NewCLI(
		WithFFmpeg(cfg.Converter.FFmpegBinary),
		WithFFprobe(cfg.Converter.FFprobeBinary),
		WithTargetSize(cfg.Converter.TargetWidth, cfg.Converter.TargetHeight),
	)
}

// Convert probes the input, launches ffmpeg, and returns the artifact
// path plus probed metadata. Images become panel-sized JPEGs, videos
// become H.264 MP4s scaled to the panel.
func (c *CLI) Convert(ctx context.Context, req Request) (*Result, error) {
	if req.Slug == "" {
		return nil, errors.New("slug required")
	}
	if req.InputPath == "" {
		return nil, errors.New("input path required")
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return nil, errors.New("output directory required")
	}

	meta, err := c.probe(ctx, req.Kind, req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", req.InputPath, err)
	}

	outputPath := filepath.Join(outputDir, req.Slug+artifactExt(req.Kind))
	args := c.conversionArgs(req.Kind, req.InputPath, outputPath)

	cmd := commandContext(ctx, c.ffmpeg, args...) //nolint:gosec
	tail := newTailBuffer(maxStderrLines)
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg timed out for %s: %w", req.Slug, ctxErr)
		}
		if detail := tail.String(); detail != "" {
			return nil, fmt.Errorf("ffmpeg failed for %s: %w: %s", req.Slug, err, detail)
		}
		return nil, fmt.Errorf("ffmpeg failed for %s: %w", req.Slug, err)
	}

	return &Result{OutputPath: outputPath, Metadata: meta}, nil
}

func artifactExt(kind catalog.Kind) string {
	if kind == catalog.KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// conversionArgs builds the ffmpeg invocation. Both kinds scale to fit
// the panel and pad to its exact dimensions so the display never has
// to resize.
func (c *CLI) conversionArgs(kind catalog.Kind, inputPath, outputPath string) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		c.width, c.height, c.width, c.height,
	)
	args := []string{"-hide_banner", "-y", "-i", inputPath, "-vf", filter}
	switch kind {
	case catalog.KindVideo:
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
			"-an",
		)
	default:
		args = append(args, "-frames:v", "1", "-q:v", "3")
	}
	return append(args, outputPath)
}

var _ Client = (*CLI)(nil)
