package eq

import "math"

// biquad is one second-order section in Direct Form II Transposed.
// Coefficients are normalized so a0 == 1.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	d0, d1             float64
}

// peaking designs an RBJ cookbook peaking filter.
func peaking(freq, sampleRate, gainDB, q float64) biquad {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha/a
	return biquad{
		b0: (1 + alpha*a) / a0,
		b1: -2 * cosW0 / a0,
		b2: (1 - alpha*a) / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha/a) / a0,
	}
}

func (s *biquad) finite() bool {
	for _, c := range [...]float64{s.b0, s.b1, s.b2, s.a1, s.a2} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (s *biquad) process(x float64) float64 {
	y := s.b0*x + s.d0
	s.d0 = s.b1*x - s.a1*y + s.d1
	s.d1 = s.b2*x - s.a2*y
	return y
}

func (s *biquad) reset() {
	s.d0, s.d1 = 0, 0
}

// magnitude returns |H(e^jw)| at freq.
func (s *biquad) magnitude(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1
	num := complex(s.b0, 0) + complex(s.b1, 0)*z1 + complex(s.b2, 0)*z2
	den := 1 + complex(s.a1, 0)*z1 + complex(s.a2, 0)*z2
	return abs(num / den)
}

func abs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
