package converter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"frameloop/internal/catalog"
)

// probe extracts dimensions, duration and a content checksum from the
// input before conversion starts. Videos go through ffprobe; images
// only need their headers decoded.
func (c *CLI) probe(ctx context.Context, kind catalog.Kind, inputPath string) (catalog.Metadata, error) {
	var meta catalog.Metadata
	var err error
	if kind == catalog.KindVideo {
		meta, err = c.probeVideo(ctx, inputPath)
	} else {
		meta, err = probeImage(inputPath)
	}
	if err != nil {
		return catalog.Metadata{}, err
	}

	checksum, err := checksumFile(inputPath)
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("checksum: %w", err)
	}
	meta.Checksum = checksum
	meta.SourceName = filepath.Base(inputPath)
	return meta, nil
}

func (c *CLI) probeVideo(ctx context.Context, inputPath string) (catalog.Metadata, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
	cmd := commandContext(ctx, c.ffprobe, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("ffprobe: %w", err)
	}

	var payload struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return catalog.Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var meta catalog.Metadata
	for _, stream := range payload.Streams {
		if stream.CodecType == "video" {
			meta.Width = stream.Width
			meta.Height = stream.Height
			break
		}
	}
	if payload.Format.Duration != "" {
		if seconds, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil {
			meta.DurationSeconds = seconds
		}
	}
	if meta.Width == 0 || meta.Height == 0 {
		return catalog.Metadata{}, fmt.Errorf("no video stream in %s", inputPath)
	}
	return meta, nil
}

func probeImage(inputPath string) (catalog.Metadata, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return catalog.Metadata{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("decode image header: %w", err)
	}
	return catalog.Metadata{Width: cfg.Width, Height: cfg.Height}, nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
