package models

// FrequencySpectrum is the averaged magnitude spectrum of one recording.
// Frequencies and Magnitudes are parallel slices of length FFTSize/2+1;
// magnitudes are in dB.
type FrequencySpectrum struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"`
	SampleRate  int       `json:"sample_rate"`
}

// Len returns the number of bins.
func (s *FrequencySpectrum) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Magnitudes)
}

// FrequencyBand is one band of an EQ curve. GainDB holds the measured level
// in a measured profile and the correction in a correction profile.
type FrequencyBand struct {
	Frequency  float64 `json:"frequency"`  // center, Hz
	GainDB     float64 `json:"gain_db"`    // dB
	Bandwidth  float64 `json:"bandwidth"`  // Hz
	Confidence float64 `json:"confidence"` // 0..1
}

// EQProfile is the tonal fingerprint of a recording: one band per configured
// center frequency, in configuration order, plus scalar descriptors.
type EQProfile struct {
	Bands            []FrequencyBand `json:"bands"`
	OverallLoudness  float64         `json:"overall_loudness"`  // dB
	DynamicRange     float64         `json:"dynamic_range"`     // dB
	SpectralCentroid float64         `json:"spectral_centroid"` // Hz
	SpectralRolloff  float64         `json:"spectral_rolloff"`  // Hz
}

// Gains returns the band gains in order.
func (p *EQProfile) Gains() []float64 {
	out := make([]float64, len(p.Bands))
	for i, b := range p.Bands {
		out[i] = b.GainDB
	}
	return out
}

// Frequencies returns the band centers in order.
func (p *EQProfile) Frequencies() []float64 {
	out := make([]float64, len(p.Bands))
	for i, b := range p.Bands {
		out[i] = b.Frequency
	}
	return out
}

// Clone returns a deep copy.
func (p *EQProfile) Clone() *EQProfile {
	c := *p
	c.Bands = append([]FrequencyBand(nil), p.Bands...)
	return &c
}

// MatchResult is the outcome of matching an input profile to a reference.
type MatchResult struct {
	CorrectionProfile   EQProfile `json:"correction_profile"`
	ReferenceNormalized []float64 `json:"reference_normalized"`
	InputNormalized     []float64 `json:"input_normalized"`
	QualityScore        float64   `json:"quality_score"` // 0..1
	Warnings            []string  `json:"warnings"`
}
