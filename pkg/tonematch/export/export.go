// Package export renders correction profiles in formats EQ plugins and
// people can consume.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/eq"
)

// ErrUnknownFormat is returned by Render for unsupported format names.
var ErrUnknownFormat = errors.New("unknown export format")

const (
	FormatReaper = "reaper"
	FormatJSON   = "json"
	FormatText   = "txt"
)

// ReaEQ exposes ten bands with five normalized parameters each.
const (
	reaEQMaxBands     = 10
	reaEQParamsPerBnd = 5
	reaEQMinFreq      = 20.0
	reaEQMaxFreq      = 20000.0
	reaEQGainRange    = 18.0
	reaEQQ            = 0.5
	reaEQBellType     = 0.4
)

type renderer func(*models.EQProfile) (string, error)

var renderers = map[string]renderer{
	FormatReaper: reaper,
	FormatJSON:   jsonProfile,
	FormatText:   text,
}

// Formats lists the supported format names in sorted order.
func Formats() []string {
	out := make([]string, 0, len(renderers))
	for name := range renderers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Extension returns the conventional file extension for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatReaper:
		return ".RfxChain"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Render encodes profile in the named format (case-insensitive).
func Render(profile *models.EQProfile, format string) (string, error) {
	if profile == nil {
		return "", fmt.Errorf("%w: profile is nil", models.ErrInvalidInput)
	}
	r, ok := renderers[strings.ToLower(format)]
	if !ok {
		return "", fmt.Errorf("%w %q (supported: %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return r(profile)
}

func jsonProfile(p *models.EQProfile) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// reaper writes a REAPER FX chain holding one ReaEQ instance. Only the first
// ten bands fit.
func reaper(p *models.EQProfile) (string, error) {
	var b strings.Builder
	b.WriteString("<FXCHAIN\n")
	b.WriteString("WNDRECT 0 0 0 0\n")
	b.WriteString("SHOW 0\n")
	b.WriteString("LASTSEL 0\n")
	b.WriteString("DOCKED 0\n")
	b.WriteString("<VST \"VST: ReaEQ (Cockos)\" ReaEQ.vst.dylib 0 \"\" 1919247729\n")

	for i, band := range p.Bands {
		if i == reaEQMaxBands {
			break
		}
		base := i * reaEQParamsPerBnd
		fmt.Fprintf(&b, "  %d 1.0\n", base)
		fmt.Fprintf(&b, "  %d %s\n", base+1, formatParam(reaperFrequency(band.Frequency)))
		fmt.Fprintf(&b, "  %d %s\n", base+2, formatParam(reaperGain(band.GainDB)))
		fmt.Fprintf(&b, "  %d %s\n", base+3, formatParam(reaEQQ))
		fmt.Fprintf(&b, "  %d %s\n", base+4, formatParam(reaEQBellType))
	}

	b.WriteString(">\n")
	b.WriteString("FLOATPOS 0 0 0 0\n")
	b.WriteString("FXID {GUID}\n")
	b.WriteString("WAK 0 0\n")
	b.WriteString(">\n")
	return b.String(), nil
}

// reaperFrequency maps 20 Hz..20 kHz onto [0, 1] on a log scale.
func reaperFrequency(f float64) float64 {
	if f <= 0 {
		return 0
	}
	n := (math.Log2(f) - math.Log2(reaEQMinFreq)) / (math.Log2(reaEQMaxFreq) - math.Log2(reaEQMinFreq))
	return clamp01(n)
}

// reaperGain maps ±18 dB onto [0, 1].
func reaperGain(db float64) float64 {
	return clamp01((db + reaEQGainRange) / (2 * reaEQGainRange))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func formatParam(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func text(p *models.EQProfile) (string, error) {
	var b strings.Builder
	b.WriteString("EQ Settings:\n\n")
	for _, band := range p.Bands {
		fmt.Fprintf(&b, "%6d Hz: %+6.2f dB (Q: %.2f)\n", int(band.Frequency), band.GainDB, qFromBandwidth(band))
	}
	return b.String(), nil
}

func qFromBandwidth(b models.FrequencyBand) float64 {
	if b.Bandwidth <= 0 {
		return eq.Q
	}
	return b.Frequency / b.Bandwidth
}
