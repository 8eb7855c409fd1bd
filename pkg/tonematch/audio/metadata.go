package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Metadata describes a source file as reported by ffprobe.
type Metadata struct {
	Filename    string  `json:"filename"`
	Title       string  `json:"title,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	DurationSec float64 `json:"duration_sec"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
	BitDepth    int     `json:"bit_depth"`
	Codec       string  `json:"codec"`
	Format      string  `json:"format"`
}

// DisplayName prefers the embedded title over the file name.
func (m *Metadata) DisplayName() string {
	switch {
	case m.Title != "" && m.Artist != "":
		return m.Artist + " - " + m.Title
	case m.Title != "":
		return m.Title
	}
	return m.Filename
}

type probeResult struct {
	Format struct {
		Duration string            `json:"duration"`
		Name     string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType     string `json:"codec_type"`
		CodecName     string `json:"codec_name"`
		SampleRate    string `json:"sample_rate"`
		Channels      int    `json:"channels"`
		BitsPerSample int    `json:"bits_per_sample"`
	} `json:"streams"`
}

// ReadMetadataFFmpeg probes path with ffprobe. Only the first audio stream
// is reported.
func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe probeResult
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	meta := &Metadata{Filename: filepath.Base(path), Format: probe.Format.Name}
	meta.DurationSec, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	if tags := probe.Format.Tags; tags != nil {
		meta.Title = tags["title"]
		meta.Artist = tags["artist"]
	}

	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		meta.SampleRate, _ = strconv.Atoi(s.SampleRate)
		meta.Channels = s.Channels
		meta.BitDepth = s.BitsPerSample
		meta.Codec = s.CodecName
		return meta, nil
	}
	return nil, errors.New("no audio stream found")
}
