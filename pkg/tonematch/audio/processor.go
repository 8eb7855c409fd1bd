package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/ToneMatch/pkg/utils"
)

// DefaultSampleRate is the common rate every file is brought to before
// analysis so that profiles are comparable.
const DefaultSampleRate = 48000

type ConvertWAVConfig struct {
	SampleRate int
}

// ConvertToMonoWAV decodes any ffmpeg-readable file into a 16-bit mono WAV
// in outputDir at cfg.SampleRate and returns its path.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s.mono%d.wav", stem, cfg.SampleRate))

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Load returns mono samples at sampleRate for any audio file. WAV files
// already at the right rate are read directly; everything else goes through
// ffmpeg into tempDir first.
func Load(ctx context.Context, path, tempDir string, sampleRate int) ([]float64, int, error) {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		samples, rate, err := ReadWavMono(path)
		if err == nil && rate == sampleRate {
			return samples, rate, nil
		}
	}

	wavPath, err := ConvertToMonoWAV(ctx, path, tempDir, ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		return nil, 0, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	samples, rate, err := ReadWavMono(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read converted WAV: %w", err)
	}
	return samples, rate, nil
}

// DownloadYouTubeAudio fetches the audio track of a YouTube video into
// outputDir as WAV and returns the file path. yt-dlp and ffmpeg must be on
// PATH.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL, outputDir string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", err
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		ExtractAudio().
		AudioFormat("wav").
		Output(filepath.Join(outputDir, videoID+".%(ext)s"))

	if _, err := dl.Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	path := filepath.Join(outputDir, videoID+".wav")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded audio for video %s not found: %w", videoID, err)
	}
	return path, nil
}
