package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := sine(440, 48000, 4800)

	if err := WriteWavMono(path, in, 48000); err != nil {
		t.Fatalf("WriteWavMono failed: %v", err)
	}

	out, rate, err := ReadWavMono(path)
	if err != nil {
		t.Fatalf("ReadWavMono failed: %v", err)
	}
	if rate != 48000 {
		t.Errorf("expected 48000 Hz, got %d", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 2.0/32768 {
			t.Fatalf("sample %d: %f vs %f", i, out[i], in[i])
		}
	}
}

func TestWriteWavClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWavMono(path, []float64{2, -3, 0.5}, 8000); err != nil {
		t.Fatalf("WriteWavMono failed: %v", err)
	}
	out, _, err := ReadWavMono(path)
	if err != nil {
		t.Fatalf("ReadWavMono failed: %v", err)
	}
	if out[0] > 1 || out[1] < -1 {
		t.Errorf("samples not clipped: %v", out)
	}
	if math.Abs(out[0]-32767.0/32768) > 1e-9 {
		t.Errorf("expected full-scale positive sample, got %f", out[0])
	}
}

func writeStereo(t *testing.T, path string, left, right []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	data := make([]int, 0, 2*len(left))
	for i := range left {
		data = append(data, left[i], right[i])
	}
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestReadWavMonoAveragesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeStereo(t, path, []int{16384, 0, -16384}, []int{0, 16384, -16384})

	out, rate, err := ReadWavMono(path)
	if err != nil {
		t.Fatalf("ReadWavMono failed: %v", err)
	}
	if rate != 44100 {
		t.Errorf("expected 44100 Hz, got %d", rate)
	}
	want := []float64{0.25, 0.25, -0.5}
	if len(out) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(out))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("frame %d: %f, want %f", i, out[i], want[i])
		}
	}
}

// pcmHeader builds a minimal mono PCM WAV whose fmt chunk claims bits per
// sample, followed by four zero data bytes.
func pcmHeader(bits uint16) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(36+4))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(16))
	binary.Write(&b, le, uint16(1)) // PCM
	binary.Write(&b, le, uint16(1)) // mono
	binary.Write(&b, le, uint32(48000))
	binary.Write(&b, le, uint32(48000*2))
	binary.Write(&b, le, uint16(2))
	binary.Write(&b, le, bits)
	b.WriteString("data")
	binary.Write(&b, le, uint32(4))
	b.Write(make([]byte, 4))
	return b.Bytes()
}

func TestReadWavMonoRejectsOddBitDepths(t *testing.T) {
	for _, bits := range []uint16{0, 12} {
		path := filepath.Join(t.TempDir(), "odd.wav")
		if err := os.WriteFile(path, pcmHeader(bits), 0o644); err != nil {
			t.Fatal(err)
		}
		samples, _, err := ReadWavMono(path)
		if err == nil {
			t.Errorf("%d-bit: expected error, got %d samples", bits, len(samples))
		}
	}

	path := filepath.Join(t.TempDir(), "ok.wav")
	if err := os.WriteFile(path, pcmHeader(16), 0o644); err != nil {
		t.Fatal(err)
	}
	samples, rate, err := ReadWavMono(path)
	if err != nil {
		t.Fatalf("16-bit header rejected: %v", err)
	}
	if rate != 48000 || len(samples) != 2 {
		t.Errorf("unexpected decode: rate %d, %d samples", rate, len(samples))
	}
}

func TestReadWavMonoRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWavMono(path); err == nil {
		t.Error("expected error for invalid file")
	}
	if _, _, err := ReadWavMono(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMixToMono8Bit(t *testing.T) {
	out := mixToMono([]int{128, 255, 0}, 1, 8)
	want := []float64{0, 127.0 / 128, -1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: %f, want %f", i, out[i], want[i])
		}
	}
}

func TestLoadReadsWavDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "direct.wav")
	if err := WriteWavMono(path, sine(1000, 48000, 1000), 48000); err != nil {
		t.Fatal(err)
	}

	samples, rate, err := Load(context.Background(), path, dir, 48000)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rate != 48000 || len(samples) != 1000 {
		t.Errorf("unexpected result: %d samples at %d Hz", len(samples), rate)
	}
}

func TestLoadResamplesWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skipf("ffmpeg not installed: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "low.wav")
	if err := WriteWavMono(path, sine(440, 22050, 22050), 22050); err != nil {
		t.Fatal(err)
	}

	samples, rate, err := Load(context.Background(), path, filepath.Join(dir, "tmp"), 48000)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rate != 48000 {
		t.Errorf("expected 48000 Hz, got %d", rate)
	}
	if math.Abs(float64(len(samples))-48000) > 100 {
		t.Errorf("expected about one second of audio, got %d samples", len(samples))
	}
}

func TestMetadataDisplayName(t *testing.T) {
	cases := []struct {
		meta Metadata
		want string
	}{
		{Metadata{Filename: "a.wav"}, "a.wav"},
		{Metadata{Filename: "a.wav", Title: "Song"}, "Song"},
		{Metadata{Filename: "a.wav", Title: "Song", Artist: "Band"}, "Band - Song"},
	}
	for _, tc := range cases {
		if got := tc.meta.DisplayName(); got != tc.want {
			t.Errorf("DisplayName() = %q, want %q", got, tc.want)
		}
	}
}
