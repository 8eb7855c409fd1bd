package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a stored profile or match does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRecord is an analyzed recording as kept by the session store.
type ProfileRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source,omitempty"`
	SampleRate  int       `json:"sample_rate"`
	DurationSec float64   `json:"duration_sec"`
	Profile     EQProfile `json:"profile"`
	CreatedAt   time.Time `json:"created_at"`
}

// MatchRecord is a stored match between two profile records.
type MatchRecord struct {
	ID          string      `json:"id"`
	ReferenceID string      `json:"reference_id"`
	InputID     string      `json:"input_id"`
	Config      MatchConfig `json:"config"`
	Result      MatchResult `json:"result"`
	CreatedAt   time.Time   `json:"created_at"`
}
