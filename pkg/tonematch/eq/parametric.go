// Package eq renders a correction curve as a cascade of peaking filters so
// it can be auditioned.
package eq

import (
	"fmt"
	"math"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

// Q is the fixed Butterworth quality factor used for every band.
const Q = 1 / math.Sqrt2

// ParametricEQ runs one peaking biquad per band in series. Each instance
// carries filter history, so it must not be shared between goroutines.
type ParametricEQ struct {
	sampleRate float64
	sections   []biquad
}

// New builds a filter for bands at sampleRate. It fails with
// models.ErrInvalidInput when a band cannot be realised: a center at or
// above Nyquist, a non-finite gain, or coefficients that overflow.
func New(sampleRate float64, bands []models.FrequencyBand) (*ParametricEQ, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %v must be positive", models.ErrInvalidInput, sampleRate)
	}

	nyquist := sampleRate / 2
	p := &ParametricEQ{sampleRate: sampleRate, sections: make([]biquad, 0, len(bands))}
	for i, b := range bands {
		if !(b.Frequency > 0) || b.Frequency >= nyquist {
			return nil, fmt.Errorf("%w: band %d frequency %v Hz outside (0, %v)",
				models.ErrInvalidInput, i, b.Frequency, nyquist)
		}
		if math.IsNaN(b.GainDB) || math.IsInf(b.GainDB, 0) {
			return nil, fmt.Errorf("%w: band %d gain %v is not finite", models.ErrInvalidInput, i, b.GainDB)
		}
		s := peaking(b.Frequency, sampleRate, b.GainDB, Q)
		if !s.finite() {
			return nil, fmt.Errorf("%w: band %d (%v Hz, %v dB) yields unstable coefficients",
				models.ErrInvalidInput, i, b.Frequency, b.GainDB)
		}
		p.sections = append(p.sections, s)
	}
	return p, nil
}

// Len returns the number of sections.
func (p *ParametricEQ) Len() int { return len(p.sections) }

// SampleRate returns the rate the filter was designed for.
func (p *ParametricEQ) SampleRate() float64 { return p.sampleRate }

// Process filters one sample through every band in order.
func (p *ParametricEQ) Process(x float64) float64 {
	for i := range p.sections {
		x = p.sections[i].process(x)
	}
	return x
}

// ProcessBuffer filters buf in place. History carries over between calls.
func (p *ParametricEQ) ProcessBuffer(buf []float64) {
	for i, x := range buf {
		buf[i] = p.Process(x)
	}
}

// Reset clears filter history.
func (p *ParametricEQ) Reset() {
	for i := range p.sections {
		p.sections[i].reset()
	}
}

// ResponseDB returns the cascade's steady-state gain at freq in dB.
func (p *ParametricEQ) ResponseDB(freq float64) float64 {
	mag := 1.0
	for i := range p.sections {
		mag *= p.sections[i].magnitude(freq, p.sampleRate)
	}
	return 20 * math.Log10(mag)
}

// ApplyPreview returns a copy of samples filtered by bands. samples is left
// untouched.
func ApplyPreview(samples []float64, sampleRate float64, bands []models.FrequencyBand) ([]float64, error) {
	p, err := New(sampleRate, bands)
	if err != nil {
		return nil, err
	}
	out := append([]float64(nil), samples...)
	p.ProcessBuffer(out)
	return out, nil
}
