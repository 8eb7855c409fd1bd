// Package spectrum computes Welch-style averaged magnitude spectra: the
// signal is cut into overlapping windowed frames, each frame is transformed,
// and the per-bin moduli are averaged before conversion to dB.
package spectrum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/ToneMatch/internal/parallel"
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/window"
)

// dbFloor keeps silent bins finite: 20*log10(1e-10) = -200 dB.
const dbFloor = 1e-10

type options struct {
	backend Backend
	workers int
}

// Option configures Analyze.
type Option func(*options)

// WithBackend selects the FFT implementation.
func WithBackend(b Backend) Option {
	return func(o *options) {
		if b != nil {
			o.backend = b
		}
	}
}

// WithWorkers caps the number of goroutines accumulating frames. Values
// below one select one worker per CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// FrameCount returns how many full frames fit into n samples, or 0 when the
// input is shorter than one frame.
func FrameCount(n int, cfg models.AnalysisConfig) int {
	if n < cfg.FFTSize || cfg.FFTSize <= 0 {
		return 0
	}
	return (n-cfg.FFTSize)/cfg.HopSize() + 1
}

// Analyze returns the averaged magnitude spectrum of samples. The result has
// FFTSize/2+1 bins at f_i = i*sampleRate/FFTSize.
//
// Frames are partitioned into contiguous ranges; every worker sums moduli
// into its own partial slice and the partials are added once all workers
// have finished.
func Analyze(samples []float64, sampleRate int, cfg models.AnalysisConfig, opts ...Option) (*models.FrequencySpectrum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", models.ErrInvalidInput, sampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: sample buffer is empty", models.ErrInvalidInput)
	}

	frames := FrameCount(len(samples), cfg)
	if frames <= 0 {
		return nil, fmt.Errorf("%w: %d samples is shorter than one %d-sample analysis window",
			models.ErrInvalidInput, len(samples), cfg.FFTSize)
	}

	o := options{backend: GoDSPBackend{}}
	for _, opt := range opts {
		opt(&o)
	}
	workers := o.workers
	if workers < 1 {
		workers = parallel.Workers(frames)
	}

	size := cfg.FFTSize
	hop := cfg.HopSize()
	bins := size/2 + 1
	win := window.Generate(cfg.Window, size)

	partials := make([][]float64, workers)
	parallel.For(frames, workers, func(w, lo, hi int) {
		acc := make([]float64, bins)
		frame := make([]float64, size)
		tr := o.backend.New(size)
		for f := lo; f < hi; f++ {
			seg := samples[f*hop : f*hop+size]
			for i, s := range seg {
				frame[i] = s * win[i]
			}
			tr.Accumulate(frame, acc)
		}
		partials[w] = acc
	})

	sum := make([]float64, bins)
	for _, p := range partials {
		if p != nil {
			floats.Add(sum, p)
		}
	}

	out := &models.FrequencySpectrum{
		Frequencies: make([]float64, bins),
		Magnitudes:  make([]float64, bins),
		SampleRate:  sampleRate,
	}
	n := float64(frames)
	for i := range sum {
		out.Frequencies[i] = float64(i) * float64(sampleRate) / float64(size)
		out.Magnitudes[i] = 20 * math.Log10(sum[i]/n+dbFloor)
	}
	return out, nil
}

// Peak returns the frequency and level of the loudest bin, ignoring DC.
func Peak(spec *models.FrequencySpectrum) (freq, magDB float64) {
	if spec.Len() < 2 {
		return 0, math.Inf(-1)
	}
	idx := 1 + floats.MaxIdx(spec.Magnitudes[1:])
	return spec.Frequencies[idx], spec.Magnitudes[idx]
}

// BinWidth returns the spacing between adjacent bins in Hz.
func BinWidth(spec *models.FrequencySpectrum) float64 {
	if spec.Len() < 2 {
		return 0
	}
	return spec.Frequencies[1] - spec.Frequencies[0]
}
