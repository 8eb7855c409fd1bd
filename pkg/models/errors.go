package models

import "errors"

// Structural violations surface as one of these two sentinels, wrapped with
// detail via fmt.Errorf("%w: ...", ...). Numeric degeneracies never do: they
// resolve to sentinel data (-80 dB bands, 0 Hz centroid).
var (
	// ErrInvalidInput covers empty or too-short sample buffers, mismatched
	// band counts and invalid filter parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig covers overlap >= 1, unsupported FFT sizes and empty
	// band lists.
	ErrInvalidConfig = errors.New("invalid config")
)
