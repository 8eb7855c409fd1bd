package tonematch

import (
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/audio"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/spectrum"
)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	Analysis   models.AnalysisConfig
	Backend    spectrum.Backend
	Workers    int
	Logger     Logger
	Storage    Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate sets the common rate every file is resampled to before
// analysis.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithAnalysisConfig(cfg models.AnalysisConfig) Option {
	return func(c *Config) {
		c.Analysis = cfg
	}
}

// WithBackend selects the FFT implementation used by the analyzer.
func WithBackend(b spectrum.Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     "tonematch.sqlite3",
		TempDir:    "/tmp",
		SampleRate: audio.DefaultSampleRate,
		Analysis:   models.DefaultAnalysisConfig(),
		Backend:    spectrum.GoDSPBackend{},
	}
}
