package tonematch

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/ToneMatch/pkg/logger"
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/audio"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/eq"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/export"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/matcher"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/profile"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/render"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/spectrum"
)

// toneService is the default implementation of the Service interface.
type toneService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Analysis.Validate(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d must be positive", models.ErrInvalidConfig, cfg.SampleRate)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.WithPrefix("[tonematch]")
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &toneService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// AnalyzeFile decodes path at the service sample rate, profiles it and
// stores the result. An empty name defaults to the file name.
func (s *toneService) AnalyzeFile(ctx context.Context, path, name string) (*models.ProfileRecord, error) {
	s.log.Infof("Analyzing file: %s", path)

	samples, rate, err := audio.Load(ctx, path, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s.analyze(ctx, name, path, samples, rate)
}

// AnalyzeSamples profiles already-decoded mono samples.
func (s *toneService) AnalyzeSamples(ctx context.Context, name string, samples []float64, sampleRate int) (*models.ProfileRecord, error) {
	if name == "" {
		name = "samples"
	}
	return s.analyze(ctx, name, "", samples, sampleRate)
}

// AnalyzeYouTube downloads a video's audio track and profiles it.
func (s *toneService) AnalyzeYouTube(ctx context.Context, youtubeURL, name string) (*models.ProfileRecord, error) {
	s.log.Infof("Downloading reference from YouTube: %s", youtubeURL)

	path, err := audio.DownloadYouTubeAudio(ctx, youtubeURL, s.config.TempDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	if name == "" {
		if meta, err := audio.ReadMetadataFFmpeg(ctx, path); err == nil {
			name = meta.DisplayName()
		} else {
			s.log.Warnf("Failed to read metadata for %s: %v", path, err)
		}
	}

	samples, rate, err := audio.Load(ctx, path, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = youtubeURL
	}
	return s.analyze(ctx, name, youtubeURL, samples, rate)
}

type analysisResult struct {
	profile *models.EQProfile
	err     error
}

// analyze runs the pure analysis pipeline on a background goroutine so the
// caller can abandon it on cancellation. A cancelled run is discarded.
func (s *toneService) analyze(ctx context.Context, name, source string, samples []float64, sampleRate int) (*models.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan analysisResult, 1)
	go func() {
		p, err := s.profile(samples, sampleRate)
		done <- analysisResult{p, err}
	}()

	var res analysisResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, res.err
	}

	rec := &models.ProfileRecord{
		Name:        name,
		Source:      source,
		SampleRate:  sampleRate,
		DurationSec: audio.Duration(len(samples), sampleRate),
		Profile:     *res.profile,
	}
	if err := s.storage.SaveProfile(rec); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	s.log.Infof("Stored profile %s (%s, %.1fs, centroid %.0f Hz)",
		rec.ID, rec.Name, rec.DurationSec, rec.Profile.SpectralCentroid)
	return rec, nil
}

func (s *toneService) profile(samples []float64, sampleRate int) (*models.EQProfile, error) {
	spec, err := spectrum.Analyze(samples, sampleRate, s.config.Analysis,
		spectrum.WithBackend(s.config.Backend),
		spectrum.WithWorkers(s.config.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("spectral analysis failed: %w", err)
	}
	s.log.Debugf("Analyzed %d samples into %d bins", len(samples), spec.Len())

	p, err := profile.Extract(spec, s.config.Analysis)
	if err != nil {
		return nil, fmt.Errorf("profile extraction failed: %w", err)
	}
	return p, nil
}

// Match compares two stored profiles and stores the correction.
func (s *toneService) Match(ctx context.Context, referenceID, inputID string, cfg models.MatchConfig) (*models.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := s.storage.GetProfile(referenceID)
	if err != nil {
		return nil, err
	}
	inp, err := s.storage.GetProfile(inputID)
	if err != nil {
		return nil, err
	}
	if ref.SampleRate != inp.SampleRate {
		return nil, fmt.Errorf("%w: reference analyzed at %d Hz but input at %d Hz",
			models.ErrInvalidInput, ref.SampleRate, inp.SampleRate)
	}

	result, err := s.MatchProfiles(&ref.Profile, &inp.Profile, cfg)
	if err != nil {
		return nil, err
	}

	rec := &models.MatchRecord{
		ReferenceID: referenceID,
		InputID:     inputID,
		Config:      cfg,
		Result:      *result,
	}
	if err := s.storage.SaveMatch(rec); err != nil {
		return nil, fmt.Errorf("failed to store match: %w", err)
	}

	s.log.Infof("Matched %s -> %s: quality %.2f, %d warnings",
		inp.Name, ref.Name, result.QualityScore, len(result.Warnings))
	return rec, nil
}

// MatchProfiles matches two profiles without touching storage.
func (s *toneService) MatchProfiles(reference, input *models.EQProfile, cfg models.MatchConfig) (*models.MatchResult, error) {
	result, err := matcher.Match(reference, input, cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		s.log.Debugf("match warning: %s", w)
	}
	return result, nil
}

// Preview filters inputPath with a stored correction and writes the result
// as a WAV file. Bands the output rate cannot represent are skipped, and the
// output is scaled down if the boost would clip.
func (s *toneService) Preview(ctx context.Context, inputPath, matchID, outPath string) error {
	rec, err := s.storage.GetMatch(matchID)
	if err != nil {
		return err
	}

	rate := s.config.SampleRate
	if inp, err := s.storage.GetProfile(rec.InputID); err == nil && inp.SampleRate > 0 {
		rate = inp.SampleRate
	}

	samples, rate, err := audio.Load(ctx, inputPath, s.config.TempDir, rate)
	if err != nil {
		return err
	}

	bands := s.playableBands(rec.Result.CorrectionProfile.Bands, rate)
	filtered, err := eq.ApplyPreview(samples, float64(rate), bands)
	if err != nil {
		return fmt.Errorf("building preview filter: %w", err)
	}

	if peak := peakAbs(filtered); peak > 1 {
		s.log.Warnf("Preview peaks at %.2f; scaling down by %.1f dB", peak, 20*math.Log10(peak))
		for i := range filtered {
			filtered[i] /= peak
		}
	}

	if err := audio.WriteWavMono(outPath, filtered, rate); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	s.log.Infof("Wrote preview %s (%d bands)", outPath, len(bands))
	return nil
}

func (s *toneService) playableBands(bands []models.FrequencyBand, rate int) []models.FrequencyBand {
	nyquist := float64(rate) / 2
	out := make([]models.FrequencyBand, 0, len(bands))
	for _, b := range bands {
		if b.Frequency >= nyquist {
			s.log.Warnf("Skipping %g Hz band: above Nyquist for %d Hz", b.Frequency, rate)
			continue
		}
		out = append(out, b)
	}
	return out
}

func peakAbs(x []float64) float64 {
	var peak float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// Export renders a stored correction in the named format.
func (s *toneService) Export(matchID, format string) (string, error) {
	rec, err := s.storage.GetMatch(matchID)
	if err != nil {
		return "", err
	}
	return export.Render(&rec.Result.CorrectionProfile, format)
}

// RenderSpectrogram draws a spectrogram of any audio file.
func (s *toneService) RenderSpectrogram(ctx context.Context, inputPath, outPath string, width, height int) error {
	samples, rate, err := audio.Load(ctx, inputPath, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		return err
	}
	return render.SpectrogramPNG(samples, rate, outPath, width, height)
}

func (s *toneService) GetProfile(id string) (*models.ProfileRecord, error) {
	return s.storage.GetProfile(id)
}

func (s *toneService) ListProfiles() ([]models.ProfileRecord, error) {
	return s.storage.ListProfiles()
}

// DeleteProfile removes a profile and every match that uses it.
func (s *toneService) DeleteProfile(id string) error {
	if err := s.storage.DeleteProfile(id); err != nil {
		return err
	}
	s.log.Infof("Deleted profile %s", id)
	return nil
}

func (s *toneService) GetMatch(id string) (*models.MatchRecord, error) {
	return s.storage.GetMatch(id)
}

func (s *toneService) ListMatches() ([]models.MatchRecord, error) {
	return s.storage.ListMatches()
}

func (s *toneService) Stats() (*Stats, error) {
	profiles, matches, err := s.storage.Counts()
	if err != nil {
		return nil, err
	}
	backend := "go-dsp"
	if s.config.Backend != nil {
		backend = s.config.Backend.Name()
	}
	return &Stats{
		Profiles:   profiles,
		Matches:    matches,
		SampleRate: s.config.SampleRate,
		FFTSize:    s.config.Analysis.FFTSize,
		Window:     s.config.Analysis.Window.String(),
		Backend:    backend,
	}, nil
}

// Close releases all resources held by the service.
func (s *toneService) Close() error {
	return s.storage.Close()
}
