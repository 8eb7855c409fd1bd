package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/utils"
)

const (
	// MaxSamples caps JSON sample uploads (ten minutes at 48 kHz).
	MaxSamples = 10 * 60 * 48000

	// MaxUploadBytes caps multipart audio uploads.
	MaxUploadBytes = 200 << 20
)

// MatchConfigRequest carries optional overrides of the default match
// settings. Absent fields keep their defaults.
type MatchConfigRequest struct {
	Intensity         *float64 `json:"intensity,omitempty"`
	MaxCorrection     *float64 `json:"max_correction,omitempty"`
	SmoothingFactor   *float64 `json:"smoothing_factor,omitempty"`
	UsePsychoacoustic *bool    `json:"use_psychoacoustic,omitempty"`
	PreserveDynamics  *bool    `json:"preserve_dynamics,omitempty"`
}

// ToConfig applies the overrides to the defaults and validates the result.
func (r *MatchConfigRequest) ToConfig() (models.MatchConfig, error) {
	cfg := models.DefaultMatchConfig()
	if r == nil {
		return cfg, nil
	}
	if r.Intensity != nil {
		cfg.Intensity = *r.Intensity
	}
	if r.MaxCorrection != nil {
		cfg.MaxCorrection = *r.MaxCorrection
	}
	if r.SmoothingFactor != nil {
		cfg.SmoothingFactor = *r.SmoothingFactor
	}
	if r.UsePsychoacoustic != nil {
		cfg.UsePsychoacoustic = *r.UsePsychoacoustic
	}
	if r.PreserveDynamics != nil {
		cfg.PreserveDynamics = *r.PreserveDynamics
	}
	return cfg, cfg.Validate()
}

// AnalyzeSamplesRequest is the JSON body for POST /api/profiles
type AnalyzeSamplesRequest struct {
	Name       string    `json:"name"`
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

func (r *AnalyzeSamplesRequest) Validate() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("samples cannot be empty")
	}
	if len(r.Samples) > MaxSamples {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSamples)
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	return nil
}

// AnalyzeYouTubeRequest is the request body for POST /api/profiles/youtube
type AnalyzeYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
	Name       string `json:"name,omitempty"`
}

func (r *AnalyzeYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if !utils.IsYouTubeURL(r.YouTubeURL) {
		return fmt.Errorf("not a YouTube URL: %s", r.YouTubeURL)
	}
	return nil
}

// MatchRequest is the request body for POST /api/match
type MatchRequest struct {
	ReferenceID string              `json:"reference_id"`
	InputID     string              `json:"input_id"`
	Config      *MatchConfigRequest `json:"config,omitempty"`
}

func (r *MatchRequest) Validate() error {
	if r.ReferenceID == "" || r.InputID == "" {
		return fmt.Errorf("reference_id and input_id are required")
	}
	return nil
}

// MatchProfilesRequest is the request body for POST /api/match/profiles
type MatchProfilesRequest struct {
	Reference *models.EQProfile   `json:"reference"`
	Input     *models.EQProfile   `json:"input"`
	Config    *MatchConfigRequest `json:"config,omitempty"`
}

func (r *MatchProfilesRequest) Validate() error {
	if r.Reference == nil || r.Input == nil {
		return fmt.Errorf("reference and input profiles are required")
	}
	return nil
}

// ListProfilesResponse is the response for GET /api/profiles
type ListProfilesResponse struct {
	Profiles []models.ProfileRecord `json:"profiles"`
	Count    int                    `json:"count"`
}

// MatchSummaryDTO is one entry of GET /api/matches
type MatchSummaryDTO struct {
	ID           string    `json:"id"`
	ReferenceID  string    `json:"reference_id"`
	InputID      string    `json:"input_id"`
	QualityScore float64   `json:"quality_score"`
	Warnings     int       `json:"warnings"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListMatchesResponse is the response for GET /api/matches
type ListMatchesResponse struct {
	Matches []MatchSummaryDTO `json:"matches"`
	Count   int               `json:"count"`
}

// DeleteProfileResponse is the response for DELETE /api/profiles/{id}
type DeleteProfileResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and session store metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	ProfileCount int64  `json:"profile_count"`
	MatchCount   int64  `json:"match_count"`
	SampleRate   int    `json:"sample_rate"`
	FFTSize      int    `json:"fft_size"`
	Window       string `json:"window"`
	Backend      string `json:"backend"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
