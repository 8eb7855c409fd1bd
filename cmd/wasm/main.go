//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/eq"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/matcher"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/profile"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/spectrum"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorAnalysisFailed
	ErrorMatchFailed
	ErrorFilterFailed
)

// readSamples copies a JS Array or typed array into a mono buffer.
func readSamples(v js.Value, channels int) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("audioArray must be an Array or Float64Array")
	}
	length := v.Length()
	if length == 0 {
		return nil, fmt.Errorf("audioArray is empty")
	}

	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("audioArray element %d is not a number", i)
		}
		samples[i] = val.Float()
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}
	return samples, nil
}

// decodeArg accepts either a JSON string or a plain JS object.
func decodeArg(v js.Value, dst any) error {
	var raw string
	switch v.Type() {
	case js.TypeString:
		raw = v.String()
	case js.TypeObject:
		raw = js.Global().Get("JSON").Call("stringify", v).String()
	default:
		return fmt.Errorf("expected a JSON string or object")
	}
	return json.Unmarshal([]byte(raw), dst)
}

// analyzeSamples(audioArray, sampleRate, channels) -> {error, data: EQProfile}
func analyzeSamples(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}
	if args[1].Type() != js.TypeNumber || args[2].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}

	sampleRate := args[1].Int()
	channels := args[2].Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	samples, err := readSamples(args[0], channels)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	cfg := models.DefaultAnalysisConfig()
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		cfg.FFTSize = args[3].Int()
	}

	spec, err := spectrum.Analyze(samples, sampleRate, cfg)
	if err != nil {
		return makeErrorResponse(ErrorAnalysisFailed, fmt.Sprintf("Spectral analysis failed: %v", err))
	}
	p, err := profile.Extract(spec, cfg)
	if err != nil {
		return makeErrorResponse(ErrorAnalysisFailed, fmt.Sprintf("Profile extraction failed: %v", err))
	}
	return makeDataResponse(p)
}

// matchProfiles(reference, input, [config]) -> {error, data: MatchResult}
func matchProfiles(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected at least 2 arguments: reference, input")
	}

	var ref, in models.EQProfile
	if err := decodeArg(args[0], &ref); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid reference profile: %v", err))
	}
	if err := decodeArg(args[1], &in); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid input profile: %v", err))
	}

	cfg := models.DefaultMatchConfig()
	if len(args) > 2 && !args[2].IsUndefined() && !args[2].IsNull() {
		if err := decodeArg(args[2], &cfg); err != nil {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid match config: %v", err))
		}
	}

	result, err := matcher.Match(&ref, &in, cfg)
	if err != nil {
		return makeErrorResponse(ErrorMatchFailed, fmt.Sprintf("Match failed: %v", err))
	}
	return makeDataResponse(result)
}

// applyCorrection(audioArray, sampleRate, correctionProfile) -> {error, data: number[]}
func applyCorrection(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, correctionProfile")
	}
	if args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}

	samples, err := readSamples(args[0], 1)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	var correction models.EQProfile
	if err := decodeArg(args[2], &correction); err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid correction profile: %v", err))
	}

	out, err := eq.ApplyPreview(samples, args[1].Float(), correction.Bands)
	if err != nil {
		return makeErrorResponse(ErrorFilterFailed, fmt.Sprintf("Failed to apply correction: %v", err))
	}

	arr := js.Global().Get("Float64Array").New(len(out))
	for i, s := range out {
		arr.SetIndex(i, s)
	}
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", arr)
	return result
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeDataResponse(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Failed to encode result: %v", err))
	}
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", js.Global().Get("JSON").Call("parse", string(data)))
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}
	logf("log", "ToneMatch WASM module initializing...")

	done := make(chan struct{})

	js.Global().Set("analyzeSamples", js.FuncOf(analyzeSamples))
	js.Global().Set("matchProfiles", js.FuncOf(matchProfiles))
	js.Global().Set("applyCorrection", js.FuncOf(applyCorrection))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else {
		logf("error", "window object is undefined")
	}

	logf("log", "ToneMatch WASM module loaded and ready")
	<-done
}
