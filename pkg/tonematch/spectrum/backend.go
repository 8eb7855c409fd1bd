package spectrum

import (
	"math/cmplx"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend creates forward real-input FFT transformers. A transformer is used
// by a single goroutine; Analyze creates one per worker.
type Backend interface {
	Name() string
	New(size int) Transformer
}

// Transformer adds |X[k]| for k in [0, len(acc)) of the forward transform
// of frame into acc. The transform is unnormalized.
type Transformer interface {
	Accumulate(frame, acc []float64)
}

// GoDSPBackend uses github.com/mjibson/go-dsp/fft. It is the default.
type GoDSPBackend struct{}

func (GoDSPBackend) Name() string { return "go-dsp" }

func (GoDSPBackend) New(int) Transformer { return goDSPTransformer{} }

type goDSPTransformer struct{}

func (goDSPTransformer) Accumulate(frame, acc []float64) {
	coeffs := dspfft.FFTReal(frame)
	for k := range acc {
		acc[k] += cmplx.Abs(coeffs[k])
	}
}

// GonumBackend uses gonum's dsp/fourier real FFT, which only computes the
// non-negative half of the spectrum and reuses its coefficient buffer.
type GonumBackend struct{}

func (GonumBackend) Name() string { return "gonum" }

func (GonumBackend) New(size int) Transformer {
	return &gonumTransformer{
		fft:    fourier.NewFFT(size),
		coeffs: make([]complex128, size/2+1),
	}
}

type gonumTransformer struct {
	fft    *fourier.FFT
	coeffs []complex128
}

func (g *gonumTransformer) Accumulate(frame, acc []float64) {
	g.coeffs = g.fft.Coefficients(g.coeffs, frame)
	for k := range acc {
		acc[k] += cmplx.Abs(g.coeffs[k])
	}
}

// BackendByName resolves "go-dsp" or "gonum"; anything else yields the default.
func BackendByName(name string) Backend {
	if name == (GonumBackend{}).Name() {
		return GonumBackend{}
	}
	return GoDSPBackend{}
}
