package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/ToneMatch/pkg/logger"
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/audio"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/export"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/spectrum"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
	backend    string
	fftSize    int
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("TONEMATCH_DB_PATH", "tonematch.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("TONEMATCH_TEMP_DIR", "/tmp"), "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", audio.DefaultSampleRate, "Analysis sample rate")
	flag.StringVar(&backend, "backend", "go-dsp", "FFT backend (go-dsp or gonum)")
	flag.IntVar(&fftSize, "fft", models.DefaultAnalysisConfig().FFTSize, "FFT size (power of two)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (tonematch.Service, error) {
	analysis := models.DefaultAnalysisConfig()
	analysis.FFTSize = fftSize
	return tonematch.NewService(
		tonematch.WithDBPath(dbPath),
		tonematch.WithTempDir(tempDir),
		tonematch.WithSampleRate(sampleRate),
		tonematch.WithAnalysisConfig(analysis),
		tonematch.WithBackend(spectrum.BackendByName(backend)),
	)
}

// mustService exits the process when the service cannot be created.
func mustService() tonematch.Service {
	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	return svc
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	logger.Errorf("%s: %v", msg, err)
	os.Exit(1)
}

// splitArgs separates leading positional arguments from trailing flags.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	printBanner()

	command, rest := args[0], args[1:]
	logger.Debugf("Executing command: %s", command)

	switch command {
	case "analyze":
		handleAnalyze(rest)
	case "reference":
		handleReference(rest)
	case "match":
		handleMatch(rest)
	case "quick":
		handleQuick(rest)
	case "preview":
		handlePreview(rest)
	case "export":
		handleExport(rest)
	case "list":
		handleList()
	case "matches":
		handleMatches()
	case "delete":
		handleDelete(rest)
	case "spectrogram":
		handleSpectrogram(rest)
	case "stats":
		handleStats()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
  _____                 __  __       _       _
 |_   _|__  _ __   ___ |  \/  | __ _| |_ ___| |__
   | |/ _ \| '_ \ / _ \| |\/| |/ _' | __/ __| '_ \
   | | (_) | | | |  __/| |  | | (_| | || (__| | | |
   |_|\___/|_| |_|\___||_|  |_|\__,_|\__\___|_| |_|

         Reference EQ Matching CLI Tool
`)
}

// matchFlags registers the correction tuning flags on fs.
func matchFlags(fs *flag.FlagSet) func() (models.MatchConfig, error) {
	def := models.DefaultMatchConfig()
	intensity := fs.Float64("intensity", def.Intensity, "Correction strength (0-1)")
	maxCorr := fs.Float64("max-correction", def.MaxCorrection, "Per-band correction ceiling in dB")
	smoothing := fs.Float64("smoothing", def.SmoothingFactor, "Neighbour smoothing (0-1)")
	noPsycho := fs.Bool("no-psychoacoustic", false, "Disable psychoacoustic weighting")
	noDynamics := fs.Bool("no-preserve-dynamics", false, "Do not scale corrections by dynamic range")

	return func() (models.MatchConfig, error) {
		cfg := models.MatchConfig{
			Intensity:         *intensity,
			MaxCorrection:     *maxCorr,
			SmoothingFactor:   *smoothing,
			UsePsychoacoustic: !*noPsycho,
			PreserveDynamics:  !*noDynamics,
		}
		return cfg, cfg.Validate()
	}
}

func handleAnalyze(args []string) {
	files, flagArgs := splitArgs(args)

	cmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	name := cmd.String("name", "", "Profile name (single file only)")
	cmd.Parse(flagArgs)

	if len(files) == 0 {
		fmt.Println("Usage: tonematch analyze <audio_file>... [--name <name>]")
		os.Exit(1)
	}
	if *name != "" && len(files) > 1 {
		fmt.Println("Error: --name can only be used with a single file")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	type outcome struct {
		path string
		rec  *models.ProfileRecord
		err  error
	}
	results := make([]outcome, 0, len(files))

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	for _, path := range files {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		rec, err := svc.AnalyzeFile(ctx, path, *name)
		cancel()
		results = append(results, outcome{path, rec, err})
		bar.EwmaIncrement(time.Since(start))
	}
	p.Wait()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", r.path, r.err)
			logger.Errorf("Analysis of %s failed: %v", r.path, r.err)
			continue
		}
		printProfile(r.rec)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func handleReference(args []string) {
	cmd := flag.NewFlagSet("reference", flag.ExitOnError)
	youtubeURL := cmd.String("youtube-url", "", "YouTube URL of the reference track")
	name := cmd.String("name", "", "Profile name (defaults to the video title)")
	cmd.Parse(args)

	if *youtubeURL == "" {
		fmt.Println("Usage: tonematch reference --youtube-url <url> [--name <name>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	fmt.Println("📥 Downloading reference audio from YouTube...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	rec, err := svc.AnalyzeYouTube(ctx, *youtubeURL, *name)
	if err != nil {
		fail("Failed to analyze YouTube reference", err)
	}
	printProfile(rec)
}

func handleMatch(args []string) {
	ids, flagArgs := splitArgs(args)

	cmd := flag.NewFlagSet("match", flag.ExitOnError)
	config := matchFlags(cmd)
	cmd.Parse(flagArgs)

	if len(ids) != 2 {
		fmt.Println("Usage: tonematch match <reference_id> <input_id> [match options]")
		os.Exit(1)
	}
	cfg, err := config()
	if err != nil {
		fail("Invalid match options", err)
	}

	svc := mustService()
	defer svc.Close()

	rec, err := svc.Match(context.Background(), ids[0], ids[1], cfg)
	if err != nil {
		fail("Failed to match profiles", err)
	}
	printMatch(rec)
}

// handleQuick analyzes a reference and an input file and matches them in
// one step, optionally exporting the correction.
func handleQuick(args []string) {
	files, flagArgs := splitArgs(args)

	cmd := flag.NewFlagSet("quick", flag.ExitOnError)
	config := matchFlags(cmd)
	format := cmd.String("format", "", "Also export the correction (reaper, json, txt)")
	out := cmd.String("out", "", "Export destination (default: stdout)")
	cmd.Parse(flagArgs)

	if len(files) != 2 {
		fmt.Println("Usage: tonematch quick <reference_file> <input_file> [match options] [--format <fmt> --out <path>]")
		os.Exit(1)
	}
	cfg, err := config()
	if err != nil {
		fail("Invalid match options", err)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Println("🎵 Analyzing reference and input...")
	ref, err := svc.AnalyzeFile(ctx, files[0], "")
	if err != nil {
		fail("Failed to analyze reference", err)
	}
	in, err := svc.AnalyzeFile(ctx, files[1], "")
	if err != nil {
		fail("Failed to analyze input", err)
	}

	rec, err := svc.Match(ctx, ref.ID, in.ID, cfg)
	if err != nil {
		fail("Failed to match", err)
	}
	printMatch(rec)

	if *format != "" {
		writeExport(svc, rec.ID, *format, *out)
	}
}

func handlePreview(args []string) {
	pos, _ := splitArgs(args)
	if len(pos) != 3 {
		fmt.Println("Usage: tonematch preview <input_file> <match_id> <output.wav>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("🎚️  Applying correction...")
	if err := svc.Preview(ctx, pos[0], pos[1], pos[2]); err != nil {
		fail("Failed to render preview", err)
	}
	fmt.Printf("✅ Preview written to %s%s\n", pos[2], fileSize(pos[2]))
}

func handleExport(args []string) {
	pos, flagArgs := splitArgs(args)

	cmd := flag.NewFlagSet("export", flag.ExitOnError)
	format := cmd.String("format", export.FormatText, "Export format ("+strings.Join(export.Formats(), ", ")+")")
	out := cmd.String("out", "", "Destination file (default: stdout)")
	cmd.Parse(flagArgs)

	if len(pos) != 1 {
		fmt.Println("Usage: tonematch export <match_id> [--format <fmt>] [--out <path>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()
	writeExport(svc, pos[0], *format, *out)
}

func writeExport(svc tonematch.Service, matchID, format, out string) {
	body, err := svc.Export(matchID, format)
	if err != nil {
		fail("Failed to export", err)
	}
	if out == "" {
		fmt.Println(body)
		return
	}
	if filepath.Ext(out) == "" {
		out += export.Extension(format)
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		fail("Failed to write export", err)
	}
	fmt.Printf("✅ Exported %s correction to %s%s\n", strings.ToLower(format), out, fileSize(out))
}

func handleList() {
	svc := mustService()
	defer svc.Close()

	profiles, err := svc.ListProfiles()
	if err != nil {
		fail("Failed to list profiles", err)
	}
	if len(profiles) == 0 {
		fmt.Println("\n📭 No profiles in database")
		return
	}

	fmt.Printf("\n📚 Found %d profile(s):\n\n", len(profiles))
	for i, p := range profiles {
		fmt.Printf("%d. %s (ID: %s)\n", i+1, p.Name, p.ID)
		fmt.Printf("   %s at %s Hz, analyzed %s\n",
			formatDuration(p.DurationSec), humanize.Comma(int64(p.SampleRate)), humanize.Time(p.CreatedAt))
		if p.Source != "" {
			fmt.Printf("   Source: %s\n", p.Source)
		}
		fmt.Println()
	}
}

func handleMatches() {
	svc := mustService()
	defer svc.Close()

	matches, err := svc.ListMatches()
	if err != nil {
		fail("Failed to list matches", err)
	}
	if len(matches) == 0 {
		fmt.Println("\n📭 No matches in database")
		return
	}

	fmt.Printf("\n🎛️  Found %d match(es):\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("%d. %s\n", i+1, m.ID)
		fmt.Printf("   reference %s <- input %s\n", m.ReferenceID, m.InputID)
		fmt.Printf("   quality %.0f%%, %d warning(s), %s\n",
			m.Result.QualityScore*100, len(m.Result.Warnings), humanize.Time(m.CreatedAt))
		fmt.Println()
	}
}

func handleDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: tonematch delete <profile_id>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	p, err := svc.GetProfile(args[0])
	if err != nil {
		fail("Profile not found", err)
	}
	if err := svc.DeleteProfile(p.ID); err != nil {
		fail("Failed to delete profile", err)
	}

	fmt.Printf("\n✅ Deleted profile %s (%s) and its matches\n", p.ID, p.Name)
	logger.Infof("Deleted profile ID=%s (%s)", p.ID, p.Name)
}

func handleSpectrogram(args []string) {
	pos, flagArgs := splitArgs(args)

	cmd := flag.NewFlagSet("spectrogram", flag.ExitOnError)
	width := cmd.Int("width", 2048, "Image width in pixels")
	height := cmd.Int("height", 512, "Image height in pixels")
	cmd.Parse(flagArgs)

	if len(pos) != 2 {
		fmt.Println("Usage: tonematch spectrogram <audio_file> <output.png> [--width <px>] [--height <px>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := svc.RenderSpectrogram(ctx, pos[0], pos[1], *width, *height); err != nil {
		fail("Failed to render spectrogram", err)
	}
	fmt.Printf("✅ Spectrogram written to %s%s\n", pos[1], fileSize(pos[1]))
}

func handleStats() {
	svc := mustService()
	defer svc.Close()

	st, err := svc.Stats()
	if err != nil {
		fail("Failed to read stats", err)
	}
	fmt.Printf("Profiles: %s\n", humanize.Comma(st.Profiles))
	fmt.Printf("Matches:  %s\n", humanize.Comma(st.Matches))
	fmt.Printf("Analysis: %d-point %s FFT at %s Hz (%s backend)\n",
		st.FFTSize, st.Window, humanize.Comma(int64(st.SampleRate)), st.Backend)
}

func printProfile(rec *models.ProfileRecord) {
	p := rec.Profile
	fmt.Printf("\n✅ %s (ID: %s)\n", rec.Name, rec.ID)
	fmt.Printf("   Duration: %s   Loudness: %.1f dB   Dynamic range: %.1f dB\n",
		formatDuration(rec.DurationSec), p.OverallLoudness, p.DynamicRange)
	fmt.Printf("   Centroid: %s   Rolloff: %s\n",
		humanize.SIWithDigits(p.SpectralCentroid, 1, "Hz"), humanize.SIWithDigits(p.SpectralRolloff, 1, "Hz"))
	for _, b := range p.Bands {
		fmt.Printf("   %10s %7.1f dB  (confidence %.2f)\n",
			humanize.SIWithDigits(b.Frequency, 1, "Hz"), b.GainDB, b.Confidence)
	}
}

func printMatch(rec *models.MatchRecord) {
	res := rec.Result
	fmt.Printf("\n🎛️  Match %s (quality %.0f%%)\n", rec.ID, res.QualityScore*100)
	for _, b := range res.CorrectionProfile.Bands {
		fmt.Printf("   %10s %+6.2f dB\n", humanize.SIWithDigits(b.Frequency, 1, "Hz"), b.GainDB)
	}
	if len(res.Warnings) > 0 {
		fmt.Println("\n⚠️  Warnings:")
		for _, w := range res.Warnings {
			fmt.Printf("   - %s\n", w)
		}
	}
}

func formatDuration(sec float64) string {
	total := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
}

func printUsage() {
	fmt.Println("ToneMatch - Reference EQ Matching CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: TONEMATCH_DB_PATH, default: tonematch.sqlite3)")
	fmt.Println("  --temp <dir>       Temporary directory for audio conversion (env: TONEMATCH_TEMP_DIR, default: /tmp)")
	fmt.Println("  --rate <hz>        Analysis sample rate (default: 48000)")
	fmt.Println("  --fft <size>       FFT size (default: 8192)")
	fmt.Println("  --backend <name>   FFT backend: go-dsp or gonum (default: go-dsp)")
	fmt.Println("\nUsage:")
	fmt.Println("  tonematch [global-options] analyze <audio_file>... [--name <name>]")
	fmt.Println("  tonematch [global-options] reference --youtube-url <url> [--name <name>]")
	fmt.Println("  tonematch [global-options] match <reference_id> <input_id> [match options]")
	fmt.Println("  tonematch [global-options] quick <reference_file> <input_file> [match options] [--format <fmt> --out <path>]")
	fmt.Println("  tonematch [global-options] preview <input_file> <match_id> <output.wav>")
	fmt.Println("  tonematch [global-options] export <match_id> [--format reaper|json|txt] [--out <path>]")
	fmt.Println("  tonematch [global-options] list | matches | stats")
	fmt.Println("  tonematch [global-options] delete <profile_id>")
	fmt.Println("  tonematch [global-options] spectrogram <audio_file> <output.png> [--width <px>] [--height <px>]")
	fmt.Println("\nMatch Options:")
	fmt.Println("  --intensity <0-1>          Correction strength (default: 0.7)")
	fmt.Println("  --max-correction <dB>      Per-band ceiling (default: 6)")
	fmt.Println("  --smoothing <0-1>          Neighbour smoothing (default: 0.5)")
	fmt.Println("  --no-psychoacoustic        Disable psychoacoustic weighting")
	fmt.Println("  --no-preserve-dynamics     Disable dynamic range preservation")
	fmt.Println("\nExamples:")
	fmt.Println("  # Match a mix against a reference master and export a REAPER chain")
	fmt.Println("  tonematch quick reference.wav mix.wav --intensity 0.5 --format reaper --out mix-eq")
	fmt.Println()
	fmt.Println("  # Use a YouTube video as the reference")
	fmt.Println("  tonematch reference --youtube-url \"https://youtu.be/dQw4w9WgXcQ\"")
}
