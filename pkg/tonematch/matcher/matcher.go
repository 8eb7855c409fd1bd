// Package matcher derives a correction curve that moves an input profile's
// tonal balance toward a reference profile.
package matcher

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

const (
	// SteepSlopeDBPerOctave is the slope above which adjacent bands are
	// flagged and penalized.
	SteepSlopeDBPerOctave = 6.0

	// MaxTotalCorrectionDB is the summed |correction| above which a warning
	// is raised.
	MaxTotalCorrectionDB = 30.0

	limitWarnThreshold = 0.1
	smoothingPasses    = 3
	smoothingDecay     = 0.7
	maxDynamicsScaling = 0.3
)

// Match compares input against reference and returns the correction that
// would make input sound like reference. Neither argument is modified.
//
// The pipeline order matters: normalize, diff, perceptual weighting,
// confidence weighting, smoothing, intensity, limiting, slope checks,
// dynamic-range preservation, scoring.
func Match(reference, input *models.EQProfile, cfg models.MatchConfig) (*models.MatchResult, error) {
	if reference == nil || input == nil {
		return nil, fmt.Errorf("%w: reference and input profiles are required", models.ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(reference.Bands) != len(input.Bands) {
		return nil, fmt.Errorf("%w: reference has %d bands but input has %d",
			models.ErrInvalidInput, len(reference.Bands), len(input.Bands))
	}
	if len(reference.Bands) == 0 {
		return nil, fmt.Errorf("%w: profiles have no bands", models.ErrInvalidInput)
	}
	for i := range reference.Bands {
		rf, inf := reference.Bands[i].Frequency, input.Bands[i].Frequency
		if math.Abs(rf-inf) > 1e-6*math.Max(math.Abs(rf), 1) {
			return nil, fmt.Errorf("%w: band %d is centered at %g Hz in the reference but %g Hz in the input",
				models.ErrInvalidInput, i, rf, inf)
		}
	}

	var warnings []string

	refNorm := Normalize(reference)
	inpNorm := Normalize(input)

	bands := make([]models.FrequencyBand, len(reference.Bands))
	for i, rb := range reference.Bands {
		bands[i] = models.FrequencyBand{
			Frequency:  rb.Frequency,
			GainDB:     refNorm[i] - inpNorm[i],
			Bandwidth:  rb.Bandwidth,
			Confidence: (rb.Confidence + input.Bands[i].Confidence) / 2,
		}
	}

	if cfg.UsePsychoacoustic {
		for i := range bands {
			bands[i].GainDB *= PsychoacousticWeight(bands[i].Frequency)
		}
	}

	for i := range bands {
		bands[i].GainDB *= math.Sqrt(math.Max(bands[i].Confidence, 0))
	}

	if cfg.SmoothingFactor > 0 {
		smooth(bands, cfg.SmoothingFactor)
	}

	for i := range bands {
		bands[i].GainDB *= cfg.Intensity
	}

	for i := range bands {
		before := bands[i].GainDB
		after := math.Max(-cfg.MaxCorrection, math.Min(cfg.MaxCorrection, before))
		bands[i].GainDB = after
		if math.Abs(before-after) > limitWarnThreshold {
			warnings = append(warnings, fmt.Sprintf(
				"%g Hz: correction limited from %.1f dB to %.1f dB", bands[i].Frequency, before, after))
		}
	}

	warnings = append(warnings, extremeCorrectionWarnings(bands)...)

	if cfg.PreserveDynamics {
		if f := dynamicsPreservationFactor(reference.DynamicRange, input.DynamicRange); f < 1 {
			for i := range bands {
				bands[i].GainDB *= f
			}
		}
	}

	if warnings == nil {
		warnings = []string{}
	}

	return &models.MatchResult{
		CorrectionProfile: models.EQProfile{
			Bands:            bands,
			OverallLoudness:  0,
			DynamicRange:     reference.DynamicRange,
			SpectralCentroid: reference.SpectralCentroid,
			SpectralRolloff:  reference.SpectralRolloff,
		},
		ReferenceNormalized: refNorm,
		InputNormalized:     inpNorm,
		QualityScore:        QualityScore(bands),
		Warnings:            warnings,
	}, nil
}

// Normalize subtracts the profile's mean band gain from every band, leaving
// only its tonal shape.
func Normalize(p *models.EQProfile) []float64 {
	gains := p.Gains()
	if len(gains) == 0 {
		return gains
	}
	mean := stat.Mean(gains, nil)
	for i := range gains {
		gains[i] -= mean
	}
	return gains
}

// smooth blends interior bands with a [0.25 0.5 0.25] neighbourhood average.
// Every pass starts from the unsmoothed curve with a decaying blend weight,
// so the last pass determines the result. Edge bands are left untouched.
func smooth(bands []models.FrequencyBand, factor float64) {
	if len(bands) < 3 {
		return
	}

	original := make([]float64, len(bands))
	for i, b := range bands {
		original[i] = b.GainDB
	}

	for pass := 0; pass < smoothingPasses; pass++ {
		weight := factor * math.Pow(smoothingDecay, float64(pass))
		for i := 1; i < len(bands)-1; i++ {
			kernel := 0.25*original[i-1] + 0.5*original[i] + 0.25*original[i+1]
			bands[i].GainDB = original[i]*(1-weight) + kernel*weight
		}
	}
}

// SlopePerOctave returns |Δgain| / octaves between two bands. ok is false
// when the bands share a center or have a non-positive one.
func SlopePerOctave(a, b models.FrequencyBand) (slope float64, ok bool) {
	if a.Frequency <= 0 || b.Frequency <= 0 {
		return 0, false
	}
	octaves := math.Abs(math.Log2(b.Frequency / a.Frequency))
	if octaves == 0 {
		return 0, false
	}
	return math.Abs(b.GainDB-a.GainDB) / octaves, true
}

func extremeCorrectionWarnings(bands []models.FrequencyBand) []string {
	var warnings []string
	for i := 1; i < len(bands); i++ {
		slope, ok := SlopePerOctave(bands[i-1], bands[i])
		if ok && slope > SteepSlopeDBPerOctave {
			warnings = append(warnings, fmt.Sprintf(
				"Steep slope between %g Hz and %g Hz (%.1f dB/octave)",
				bands[i-1].Frequency, bands[i].Frequency, slope))
		}
	}

	var total float64
	for _, b := range bands {
		total += math.Abs(b.GainDB)
	}
	if total > MaxTotalCorrectionDB {
		warnings = append(warnings, fmt.Sprintf(
			"High total correction: %.1f dB. Consider lower intensity.", total))
	}
	return warnings
}

// dynamicsPreservationFactor scales corrections down when the reference is
// more compressed than the input, by at most 30%.
func dynamicsPreservationFactor(refDR, inpDR float64) float64 {
	if !(refDR < inpDR) || inpDR <= 0 {
		return 1
	}
	return 1 - math.Min(1-refDR/inpDR, maxDynamicsScaling)
}

// QualityScore rates a correction curve in [0, 1]: large average
// corrections, steep slopes and low confidence all reduce it.
func QualityScore(bands []models.FrequencyBand) float64 {
	if len(bands) == 0 {
		return 0
	}

	var sumAbs, sumConf float64
	for _, b := range bands {
		sumAbs += math.Abs(b.GainDB)
		sumConf += b.Confidence
	}
	n := float64(len(bands))

	score := 1.0
	score -= math.Min(sumAbs/n/10, 0.4)
	for i := 1; i < len(bands); i++ {
		if slope, ok := SlopePerOctave(bands[i-1], bands[i]); ok && slope > SteepSlopeDBPerOctave {
			score -= 0.05
		}
	}
	score *= 0.7 + 0.3*(sumConf/n)

	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}
