package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// ErrUnsupportedWAV is returned for WAV files the decoder cannot turn into
// integer PCM (float or compressed payloads).
var ErrUnsupportedWAV = errors.New("unsupported WAV encoding")

// ReadWavMono decodes a PCM WAV file of any bit depth and channel count into
// mono samples in [-1, 1]. Channels are averaged.
func ReadWavMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("%w: %s uses format tag %d", ErrUnsupportedWAV, path, dec.WavAudioFormat)
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, fmt.Errorf("%w: %s has bit depth %d", ErrUnsupportedWAV, path, dec.BitDepth)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%s: no channels", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	return mixToMono(buf.Data, channels, int(dec.BitDepth)), int(dec.SampleRate), nil
}

func mixToMono(data []int, channels, bitDepth int) []float64 {
	scale := 1 / float64(int64(1)<<(uint(bitDepth)-1))
	// 8-bit WAV is unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c] - offset
		}
		out[i] = float64(sum) * scale / float64(channels)
	}
	return out
}

// WriteWavMono writes samples as 16-bit mono PCM. Values outside [-1, 1]
// are clipped.
func WriteWavMono(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		buf.Data[i] = int(math.Round(s * math.MaxInt16))
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return f.Close()
}

// Duration returns the length of n samples at sampleRate in seconds.
func Duration(n, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(n) / float64(sampleRate)
}
