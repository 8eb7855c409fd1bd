package tonematch

import (
	"context"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

type Service interface {
	AnalyzeFile(ctx context.Context, path, name string) (*models.ProfileRecord, error)
	AnalyzeSamples(ctx context.Context, name string, samples []float64, sampleRate int) (*models.ProfileRecord, error)
	AnalyzeYouTube(ctx context.Context, youtubeURL, name string) (*models.ProfileRecord, error)
	Match(ctx context.Context, referenceID, inputID string, cfg models.MatchConfig) (*models.MatchRecord, error)
	MatchProfiles(reference, input *models.EQProfile, cfg models.MatchConfig) (*models.MatchResult, error)
	Preview(ctx context.Context, inputPath, matchID, outPath string) error
	Export(matchID, format string) (string, error)
	RenderSpectrogram(ctx context.Context, inputPath, outPath string, width, height int) error
	GetProfile(id string) (*models.ProfileRecord, error)
	ListProfiles() ([]models.ProfileRecord, error)
	DeleteProfile(id string) error
	GetMatch(id string) (*models.MatchRecord, error)
	ListMatches() ([]models.MatchRecord, error)
	Stats() (*Stats, error)
	Close() error
}

type Storage interface {
	SaveProfile(rec *models.ProfileRecord) error
	GetProfile(id string) (*models.ProfileRecord, error)
	ListProfiles() ([]models.ProfileRecord, error)
	DeleteProfile(id string) error
	SaveMatch(rec *models.MatchRecord) error
	GetMatch(id string) (*models.MatchRecord, error)
	ListMatches() ([]models.MatchRecord, error)
	Counts() (profiles, matches int64, err error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
