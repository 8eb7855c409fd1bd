package models

import (
	"fmt"
	"math"

	"github.com/himanishpuri/ToneMatch/pkg/tonematch/window"
)

// DefaultBands are the ten octave-spaced centers the matcher's canonical
// psychoacoustic table was defined on.
var DefaultBands = []float64{31.5, 63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

const (
	minFFTSize = 16
	maxFFTSize = 1 << 20
)

// AnalysisConfig drives both the spectral analyzer and the profile
// extractor. Treat it as immutable once built.
type AnalysisConfig struct {
	FFTSize int         `json:"fft_size"`
	Window  window.Type `json:"window_type"`
	Overlap float64     `json:"overlap"` // [0, 0.9)
	Bands   []float64   `json:"frequency_bands"`
}

// DefaultAnalysisConfig favours frequency resolution: 8192-point
// Blackman-Harris frames with 75% overlap.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		FFTSize: 8192,
		Window:  window.BlackmanHarris,
		Overlap: 0.75,
		Bands:   append([]float64(nil), DefaultBands...),
	}
}

// HopSize is the frame advance in samples, never less than one.
func (c AnalysisConfig) HopSize() int {
	hop := int(float64(c.FFTSize) * (1 - c.Overlap))
	if hop < 1 {
		hop = 1
	}
	return hop
}

// Validate reports structural problems as ErrInvalidConfig.
func (c AnalysisConfig) Validate() error {
	if c.FFTSize < minFFTSize || c.FFTSize > maxFFTSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fft size %d must be a power of two in [%d, %d]",
			ErrInvalidConfig, c.FFTSize, minFFTSize, maxFFTSize)
	}
	if math.IsNaN(c.Overlap) || c.Overlap < 0 || c.Overlap >= 0.9 {
		return fmt.Errorf("%w: overlap %v must be in [0, 0.9)", ErrInvalidConfig, c.Overlap)
	}
	if len(c.Bands) == 0 {
		return fmt.Errorf("%w: frequency band list is empty", ErrInvalidConfig)
	}
	for i, f := range c.Bands {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: band %d has invalid center frequency %v", ErrInvalidConfig, i, f)
		}
	}
	return nil
}

// MatchConfig tunes how aggressively a correction curve is derived.
type MatchConfig struct {
	Intensity         float64 `json:"intensity"`        // 0..1
	MaxCorrection     float64 `json:"max_correction"`   // ± dB ceiling
	SmoothingFactor   float64 `json:"smoothing_factor"` // 0..1
	UsePsychoacoustic bool    `json:"use_psychoacoustic"`
	PreserveDynamics  bool    `json:"preserve_dynamics"`
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Intensity:         0.7,
		MaxCorrection:     6.0,
		SmoothingFactor:   0.5,
		UsePsychoacoustic: true,
		PreserveDynamics:  true,
	}
}

// Validate reports out-of-range knobs as ErrInvalidConfig.
func (c MatchConfig) Validate() error {
	if math.IsNaN(c.Intensity) || c.Intensity < 0 || c.Intensity > 1 {
		return fmt.Errorf("%w: intensity %v must be in [0, 1]", ErrInvalidConfig, c.Intensity)
	}
	if math.IsNaN(c.SmoothingFactor) || c.SmoothingFactor < 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("%w: smoothing factor %v must be in [0, 1]", ErrInvalidConfig, c.SmoothingFactor)
	}
	if math.IsNaN(c.MaxCorrection) || math.IsInf(c.MaxCorrection, 0) || c.MaxCorrection < 0 {
		return fmt.Errorf("%w: max correction %v must be a finite value >= 0", ErrInvalidConfig, c.MaxCorrection)
	}
	return nil
}
