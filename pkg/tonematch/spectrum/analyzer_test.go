package spectrum

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/window"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func testConfig(fftSize int) models.AnalysisConfig {
	cfg := models.DefaultAnalysisConfig()
	cfg.FFTSize = fftSize
	return cfg
}

func TestAnalyzeSinePeak(t *testing.T) {
	const sampleRate = 48000
	cfg := testConfig(4096)

	for _, freq := range []float64{100, 997, 5000, 15000} {
		for _, wt := range window.Types() {
			cfg.Window = wt
			spec, err := Analyze(sine(freq, sampleRate, sampleRate), sampleRate, cfg)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			peak, _ := Peak(spec)
			if math.Abs(peak-freq) > BinWidth(spec) {
				t.Errorf("%s window, %v Hz tone: peak at %v Hz (bin width %v)",
					wt, freq, peak, BinWidth(spec))
			}
		}
	}
}

func TestAnalyzeSpectrumLength(t *testing.T) {
	const sampleRate = 44100
	for _, size := range []int{256, 1024, 8192} {
		cfg := testConfig(size)
		for _, n := range []int{size, size + 1, 3*size + 17} {
			spec, err := Analyze(sine(440, sampleRate, n), sampleRate, cfg)
			if err != nil {
				t.Fatalf("Analyze(size=%d, n=%d) failed: %v", size, n, err)
			}
			if spec.Len() != size/2+1 || len(spec.Frequencies) != size/2+1 {
				t.Errorf("size %d: expected %d bins, got %d", size, size/2+1, spec.Len())
			}
			if spec.SampleRate != sampleRate {
				t.Errorf("expected sample rate %d, got %d", sampleRate, spec.SampleRate)
			}
			last := spec.Frequencies[spec.Len()-1]
			if math.Abs(last-sampleRate/2.0) > 1e-9 {
				t.Errorf("top bin should sit at Nyquist, got %v", last)
			}
		}
	}
}

func TestAnalyzeShortInput(t *testing.T) {
	cfg := testConfig(1024)

	_, err := Analyze(make([]float64, 1023), 48000, cfg)
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short input, got %v", err)
	}

	_, err = Analyze(nil, 48000, cfg)
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty input, got %v", err)
	}

	_, err = Analyze(make([]float64, 4096), 0, cfg)
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero sample rate, got %v", err)
	}
}

func TestAnalyzeInvalidConfig(t *testing.T) {
	samples := make([]float64, 8192)

	bad := []models.AnalysisConfig{
		{FFTSize: 1000, Overlap: 0.5, Bands: models.DefaultBands},
		{FFTSize: 1024, Overlap: 0.9, Bands: models.DefaultBands},
		{FFTSize: 1024, Overlap: -0.1, Bands: models.DefaultBands},
		{FFTSize: 1024, Overlap: 0.5},
		{FFTSize: 1024, Overlap: 0.5, Bands: []float64{100, -5}},
	}
	for i, cfg := range bad {
		if _, err := Analyze(samples, 48000, cfg); !errors.Is(err, models.ErrInvalidConfig) {
			t.Errorf("config %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestAnalyzeSilenceIsFinite(t *testing.T) {
	cfg := testConfig(512)
	spec, err := Analyze(make([]float64, 2048), 48000, cfg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i, m := range spec.Magnitudes {
		if math.Abs(m-(-200)) > 1e-9 {
			t.Fatalf("bin %d of silence: expected -200 dB floor, got %v", i, m)
		}
	}
}

func TestAnalyzeBackendsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := make([]float64, 20000)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	cfg := testConfig(1024)

	a, err := Analyze(samples, 48000, cfg, WithBackend(GoDSPBackend{}))
	if err != nil {
		t.Fatalf("go-dsp backend failed: %v", err)
	}
	b, err := Analyze(samples, 48000, cfg, WithBackend(GonumBackend{}))
	if err != nil {
		t.Fatalf("gonum backend failed: %v", err)
	}
	for i := range a.Magnitudes {
		if math.Abs(a.Magnitudes[i]-b.Magnitudes[i]) > 1e-6 {
			t.Fatalf("bin %d: go-dsp %v dB, gonum %v dB", i, a.Magnitudes[i], b.Magnitudes[i])
		}
	}
}

func TestAnalyzeWorkerCountDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := make([]float64, 30000)
	for i := range samples {
		samples[i] = rng.NormFloat64() * 0.1
	}
	cfg := testConfig(2048)

	serial, err := Analyze(samples, 44100, cfg, WithWorkers(1))
	if err != nil {
		t.Fatalf("serial Analyze failed: %v", err)
	}
	par, err := Analyze(samples, 44100, cfg, WithWorkers(6))
	if err != nil {
		t.Fatalf("parallel Analyze failed: %v", err)
	}
	for i := range serial.Magnitudes {
		if math.Abs(serial.Magnitudes[i]-par.Magnitudes[i]) > 1e-9 {
			t.Fatalf("bin %d differs: %v vs %v", i, serial.Magnitudes[i], par.Magnitudes[i])
		}
	}
}

func TestFrameCount(t *testing.T) {
	cfg := testConfig(1024) // hop 256 at 75% overlap
	cases := map[int]int{
		0:    0,
		1023: 0,
		1024: 1,
		1279: 1,
		1280: 2,
		2048: 5,
	}
	for n, want := range cases {
		if got := FrameCount(n, cfg); got != want {
			t.Errorf("FrameCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestBackendByName(t *testing.T) {
	if BackendByName("gonum").Name() != "gonum" {
		t.Error("expected gonum backend")
	}
	if BackendByName("anything").Name() != "go-dsp" {
		t.Error("expected default go-dsp backend")
	}
}
