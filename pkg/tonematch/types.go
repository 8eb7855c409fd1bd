package tonematch

import "github.com/himanishpuri/ToneMatch/pkg/models"

// ErrNotFound is returned for unknown profile or match IDs.
var ErrNotFound = models.ErrNotFound

// Stats summarizes the session store.
type Stats struct {
	Profiles   int64  `json:"profiles"`
	Matches    int64  `json:"matches"`
	SampleRate int    `json:"sample_rate"`
	FFTSize    int    `json:"fft_size"`
	Window     string `json:"window"`
	Backend    string `json:"backend"`
}
