package window

import (
	"encoding/json"
	"math"
	"testing"
)

func TestGenerateBounds(t *testing.T) {
	const tol = 1e-9
	sizes := []int{1, 2, 7, 128, 1024, 8192}

	for _, typ := range Types() {
		lo, hi := Bounds(typ)
		for _, size := range sizes {
			w := Generate(typ, size)
			if len(w) != size {
				t.Fatalf("%s: expected %d coefficients, got %d", typ, size, len(w))
			}
			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s[%d] of %d is not finite: %v", typ, i, size, v)
				}
				if v < lo-tol || v > hi+tol {
					t.Errorf("%s[%d] of %d = %f outside [%f, %f]", typ, i, size, v, lo, hi)
				}
			}
		}
	}
}

func TestFlatTopLowerBoundIsTight(t *testing.T) {
	lo, _ := Bounds(FlatTop)
	min := math.Inf(1)
	for _, v := range Generate(FlatTop, 1<<16) {
		min = math.Min(min, v)
	}
	if min < lo {
		t.Fatalf("flat-top minimum %f below reported bound %f", min, lo)
	}
	if min-lo > 1e-3 {
		t.Errorf("flat-top bound %f is loose, minimum is %f", lo, min)
	}
}

func TestGeneratePeriodicShape(t *testing.T) {
	const n = 256
	for _, typ := range Types() {
		w := Generate(typ, n)
		// periodic window peaks at the centre sample
		if w[0] >= w[n/2] {
			t.Errorf("%s should be lower at the edge than at the centre", typ)
		}
		// and is symmetric around it
		for i := 1; i < n/2; i++ {
			if math.Abs(w[i]-w[n-i]) > 1e-12 {
				t.Fatalf("%s not symmetric at %d: %f vs %f", typ, i, w[i], w[n-i])
			}
		}
	}
}

func TestHannKnownValues(t *testing.T) {
	w := Generate(Hann, 4)
	want := []float64{0, 0.5, 1, 0.5}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Errorf("hann[%d] = %f, want %f", i, w[i], want[i])
		}
	}
}

func TestGenerateNonPositiveSize(t *testing.T) {
	if w := Generate(Hann, 0); w != nil {
		t.Errorf("expected nil for size 0, got %v", w)
	}
	if w := Generate(FlatTop, -3); w != nil {
		t.Errorf("expected nil for negative size, got %v", w)
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"BlackmanHarris":  BlackmanHarris,
		"blackman-harris": BlackmanHarris,
		"":                BlackmanHarris,
		"Hann":            Hann,
		"hanning":         Hann,
		"HAMMING":         Hamming,
		"flat_top":        FlatTop,
	}
	for in, want := range cases {
		got, err := ParseType(in)
		if err != nil {
			t.Errorf("ParseType(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseType(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseType("kaiser"); err == nil {
		t.Error("expected error for unsupported window")
	}
}

func TestTypeJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		W Type `json:"w"`
	}{W: FlatTop})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"w":"flat-top"}` {
		t.Errorf("unexpected encoding %s", data)
	}

	var back struct {
		W Type `json:"w"`
	}
	if err := json.Unmarshal([]byte(`{"w":"hamming"}`), &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.W != Hamming {
		t.Errorf("expected hamming, got %s", back.W)
	}
}
