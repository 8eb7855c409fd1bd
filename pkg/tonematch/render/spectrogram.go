// Package render draws spectrograms so a correction preview can be compared
// visually with its source.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/utils"
)

const (
	DefaultWidth  = 2048
	DefaultHeight = 512
)

// SpectrogramPNG renders samples as a width x height magnitude spectrogram
// on a black background and writes it to outPath. Zero dimensions select the
// defaults.
func SpectrogramPNG(samples []float64, sampleRate int, outPath string, width, height int) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples to render", models.ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", models.ErrInvalidInput, sampleRate)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if len(samples) < width {
		return fmt.Errorf("%w: %d samples cannot fill %d columns", models.ErrInvalidInput, len(samples), width)
	}

	if err := utils.MakeDir(filepath.Dir(outPath)); err != nil {
		return err
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude
	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false,
		false,
		true,
		false,
	)

	if err := spectrogram.SavePng(img, outPath); err != nil {
		return fmt.Errorf("saving spectrogram %s: %w", outPath, err)
	}
	return nil
}
