package matcher

import (
	"math"
	"sort"
)

// weightPoint is one anchor of the equal-loudness sensitivity curve.
type weightPoint struct {
	freq, weight float64
}

// Sensitivity anchors loosely following the ISO 226:2003 equal-loudness
// contours: the ear is least sensitive at the extremes and most sensitive
// around 1-4 kHz.
var sensitivityCurve = []weightPoint{
	{31.5, 0.6},
	{63, 0.7},
	{125, 0.85},
	{250, 0.95},
	{500, 1.1},
	{1000, 1.3},
	{2000, 1.35},
	{4000, 1.25},
	{8000, 1.0},
	{16000, 0.7},
}

// PsychoacousticWeight returns the sensitivity weight for a frequency by
// linear interpolation over log2(frequency) between the curve anchors.
// Frequencies outside the curve take the nearest end value.
func PsychoacousticWeight(freq float64) float64 {
	first, last := sensitivityCurve[0], sensitivityCurve[len(sensitivityCurve)-1]
	if !(freq > first.freq) {
		return first.weight
	}
	if freq >= last.freq {
		return last.weight
	}

	hi := sort.Search(len(sensitivityCurve), func(i int) bool {
		return sensitivityCurve[i].freq >= freq
	})
	a, b := sensitivityCurve[hi-1], sensitivityCurve[hi]
	if b.freq == freq {
		return b.weight
	}
	t := (math.Log2(freq) - math.Log2(a.freq)) / (math.Log2(b.freq) - math.Log2(a.freq))
	return a.weight + t*(b.weight-a.weight)
}
