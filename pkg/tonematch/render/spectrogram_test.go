package render

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

func TestSpectrogramPNG(t *testing.T) {
	const rate = 16000
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*1000*float64(i)/rate)
	}

	out := filepath.Join(t.TempDir(), "plots", "tone.png")
	if err := SpectrogramPNG(samples, rate, out, 256, 128); err != nil {
		t.Fatalf("SpectrogramPNG failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 128 {
		t.Errorf("expected 256x128, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSpectrogramPNGRejectsBadInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.png")
	if err := SpectrogramPNG(nil, 16000, out, 0, 0); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty samples: expected ErrInvalidInput, got %v", err)
	}
	if err := SpectrogramPNG(make([]float64, 4096), 0, out, 0, 0); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero rate: expected ErrInvalidInput, got %v", err)
	}
	if err := SpectrogramPNG(make([]float64, 10), 16000, out, 64, 64); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("too short: expected ErrInvalidInput, got %v", err)
	}
}
