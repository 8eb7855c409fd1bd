// Package window generates analysis-window coefficients for spectral
// analysis. All variants are closed-form cosine series evaluated at the
// periodic position x = i/N, which is the form FFT framing wants.
package window

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window function.
type Type int

const (
	// BlackmanHarris is the default: lowest sidelobes, best frequency resolution.
	BlackmanHarris Type = iota
	Hann
	Hamming
	// FlatTop trades resolution for amplitude accuracy.
	FlatTop
)

var names = map[Type]string{
	BlackmanHarris: "blackman-harris",
	Hann:           "hann",
	Hamming:        "hamming",
	FlatTop:        "flat-top",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// MarshalText encodes the type by name so configs round-trip through JSON.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := names[t]; !ok {
		return nil, fmt.Errorf("unknown window type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts any spelling ParseType accepts.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType resolves a window name. Separators and case are ignored, so
// "BlackmanHarris", "blackman-harris" and "blackman_harris" are equivalent.
func ParseType(s string) (Type, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch key {
	case "blackmanharris", "":
		return BlackmanHarris, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "flattop":
		return FlatTop, nil
	}
	return BlackmanHarris, fmt.Errorf("unknown window type %q", s)
}

// Types lists every supported window.
func Types() []Type {
	return []Type{BlackmanHarris, Hann, Hamming, FlatTop}
}

// cosine-series coefficients, alternating signs applied in eval
var (
	blackmanHarrisCoeffs = []float64{0.35875, 0.48829, 0.14128, 0.01168}
	flatTopCoeffs        = []float64{0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368}
)

// Generate returns n coefficients of the selected window. n <= 0 yields nil.
// Unknown types fall back to Blackman-Harris.
func Generate(t Type, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = eval(t, float64(i)/float64(n))
	}
	return out
}

func eval(t Type, x float64) float64 {
	switch t {
	case Hann:
		return 0.5 * (1 - math.Cos(2*math.Pi*x))
	case Hamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case FlatTop:
		return cosineSum(flatTopCoeffs, x)
	default:
		return cosineSum(blackmanHarrisCoeffs, x)
	}
}

func cosineSum(coeffs []float64, x float64) float64 {
	var sum float64
	sign := 1.0
	for k, a := range coeffs {
		sum += sign * a * math.Cos(2*math.Pi*float64(k)*x)
		sign = -sign
	}
	return sum
}

// Bounds returns the theoretical amplitude range of a window. Flat-top is
// the only variant that goes negative; its five-term series bottoms out
// near -0.07056.
func Bounds(t Type) (lo, hi float64) {
	switch t {
	case Hann:
		return 0, 1
	case Hamming:
		return 0.08, 1
	case FlatTop:
		return -0.0706, 1.0001
	default:
		return 0, 1
	}
}
