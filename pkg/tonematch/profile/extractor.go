// Package profile reduces a magnitude spectrum to an EQ profile: one
// 1/3-octave band level per configured center frequency plus loudness,
// dynamic range, centroid and rolloff descriptors.
package profile

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/ToneMatch/internal/parallel"
	"github.com/himanishpuri/ToneMatch/pkg/models"
)

const (
	// EmptyBandGainDB marks a band that no spectrum bin fell into.
	EmptyBandGainDB = -80.0

	// RolloffThreshold is the share of total power below the rolloff frequency.
	RolloffThreshold = 0.85

	bandwidthRatio = 0.23
)

// thirdOctave is 2^(1/6), the half-width of a 1/3-octave band in ratio terms.
var thirdOctave = math.Pow(2, 1.0/6.0)

// Extract builds an EQProfile from spec. Bands come out in cfg.Bands order.
// Each band reads only the shared spectrum and writes only its own slot, so
// bands are evaluated in parallel.
func Extract(spec *models.FrequencySpectrum, cfg models.AnalysisConfig) (*models.EQProfile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if spec.Len() == 0 {
		return nil, fmt.Errorf("%w: spectrum is empty", models.ErrInvalidInput)
	}
	if len(spec.Frequencies) != len(spec.Magnitudes) {
		return nil, fmt.Errorf("%w: spectrum has %d frequencies but %d magnitudes",
			models.ErrInvalidInput, len(spec.Frequencies), len(spec.Magnitudes))
	}

	bands := parallel.Map(len(cfg.Bands), func(i int) models.FrequencyBand {
		return ExtractBand(spec, cfg.Bands[i])
	})

	return &models.EQProfile{
		Bands:            bands,
		OverallLoudness:  OverallLoudness(spec.Magnitudes),
		DynamicRange:     DynamicRange(spec.Magnitudes),
		SpectralCentroid: SpectralCentroid(spec),
		SpectralRolloff:  SpectralRolloff(spec, RolloffThreshold),
	}, nil
}

// ExtractBand measures the 1/3-octave band around center. The level is the
// plain mean of the bins' dB values; confidence falls as their spread grows.
func ExtractBand(spec *models.FrequencySpectrum, center float64) models.FrequencyBand {
	band := models.FrequencyBand{
		Frequency: center,
		Bandwidth: center * bandwidthRatio,
	}

	lower, upper := BandEdges(center)
	var mags []float64
	for i, f := range spec.Frequencies {
		if f >= lower && f <= upper {
			mags = append(mags, spec.Magnitudes[i])
		}
	}

	if len(mags) == 0 {
		band.GainDB = EmptyBandGainDB
		band.Confidence = 0
		return band
	}

	mean, std := stat.MeanStdDev(mags, nil)
	if len(mags) < 2 || math.IsNaN(std) {
		std = 0
	}
	band.GainDB = mean
	band.Confidence = clamp(1/(1+std/10), 0, 1)
	return band
}

// BandEdges returns the 1/3-octave bounds around center.
func BandEdges(center float64) (lower, upper float64) {
	return center / thirdOctave, center * thirdOctave
}

// OverallLoudness is the RMS power of the bins expressed in dB.
func OverallLoudness(mags []float64) float64 {
	if len(mags) == 0 {
		return math.Inf(-1)
	}
	power := make([]float64, len(mags))
	for i, m := range mags {
		power[i] = math.Pow(10, m/10)
	}
	return 20 * math.Log10(math.Sqrt(stat.Mean(power, nil)))
}

// DynamicRange is the spread between the 95th and 5th percentile of the
// magnitudes, which ignores isolated spikes and notches.
func DynamicRange(mags []float64) float64 {
	if len(mags) == 0 {
		return 0
	}
	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	return percentile(sorted, 0.95) - percentile(sorted, 0.05)
}

// percentile picks sorted[floor(p*n)], clamped to the last element.
func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// SpectralCentroid is the amplitude-weighted mean frequency. A spectrum
// with zero total amplitude has a centroid of 0 Hz.
func SpectralCentroid(spec *models.FrequencySpectrum) float64 {
	var weighted, total float64
	for i, f := range spec.Frequencies {
		amp := math.Pow(10, spec.Magnitudes[i]/20)
		weighted += f * amp
		total += amp
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SpectralRolloff returns the lowest bin frequency at which the cumulative
// power reaches threshold of the total, or the top bin frequency if it never
// does.
func SpectralRolloff(spec *models.FrequencySpectrum, threshold float64) float64 {
	n := spec.Len()
	if n == 0 {
		return 0
	}

	power := make([]float64, n)
	for i, m := range spec.Magnitudes {
		power[i] = math.Pow(10, m/10)
	}
	target := floats.Sum(power) * threshold

	var cumulative float64
	for i, p := range power {
		cumulative += p
		if cumulative >= target {
			return spec.Frequencies[i]
		}
	}
	return spec.Frequencies[n-1]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
