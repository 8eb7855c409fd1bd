package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/ToneMatch/pkg/logger"
	"github.com/himanishpuri/ToneMatch/pkg/models"
	"github.com/himanishpuri/ToneMatch/pkg/tonematch"
)

func newTestServer(t *testing.T, configure ...func(*ServerConfig)) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	cfg := models.DefaultAnalysisConfig()
	cfg.FFTSize = 2048
	svc, err := tonematch.NewService(
		tonematch.WithDBPath(filepath.Join(dir, "server.sqlite3")),
		tonematch.WithTempDir(filepath.Join(dir, "tmp")),
		tonematch.WithAnalysisConfig(cfg),
		tonematch.WithLogger(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	config := &ServerConfig{
		DBPath:         "server.sqlite3",
		TempDir:        filepath.Join(dir, "tmp"),
		AllowedOrigins: []string{"*"},
	}
	for _, fn := range configure {
		fn(config)
	}
	srv := NewServer(svc, config)
	srv.log = logger.New(logger.Config{Level: logger.FATAL, Output: io.Discard})

	ts := httptest.NewServer(srv.setupRoutes())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
	})
	return ts
}

func samples(seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, 48000)
	for i := range out {
		out[i] = 0.2 * (r.Float64()*2 - 1)
	}
	return out
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func analyze(t *testing.T, ts *httptest.Server, name string, seed int64) models.ProfileRecord {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/profiles", AnalyzeSamplesRequest{
		Name:       name,
		Samples:    samples(seed),
		SampleRate: 48000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("analyze: expected 201, got %d", resp.StatusCode)
	}
	var rec models.ProfileRecord
	decode(t, resp, &rec)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header on response")
	}
}

func TestProfileMatchExportFlow(t *testing.T) {
	ts := newTestServer(t)

	ref := analyze(t, ts, "reference", 1)
	in := analyze(t, ts, "input", 2)
	if ref.ID == "" || len(ref.Profile.Bands) != len(models.DefaultBands) {
		t.Fatalf("unexpected profile record %+v", ref)
	}

	resp, err := http.Get(ts.URL + "/api/profiles")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var list ListProfilesResponse
	decode(t, resp, &list)
	if list.Count != 2 {
		t.Errorf("expected 2 profiles, got %d", list.Count)
	}

	intensity := 0.5
	resp = postJSON(t, ts.URL+"/api/match", MatchRequest{
		ReferenceID: ref.ID,
		InputID:     in.ID,
		Config:      &MatchConfigRequest{Intensity: &intensity},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("match: expected 201, got %d", resp.StatusCode)
	}
	var match models.MatchRecord
	decode(t, resp, &match)
	if match.Config.Intensity != 0.5 || match.Config.MaxCorrection != models.DefaultMatchConfig().MaxCorrection {
		t.Errorf("config overrides not applied: %+v", match.Config)
	}

	resp, err = http.Get(ts.URL + "/api/matches/" + match.ID)
	if err != nil {
		t.Fatalf("get match failed: %v", err)
	}
	var got models.MatchRecord
	decode(t, resp, &got)
	if got.ID != match.ID || got.ReferenceID != ref.ID {
		t.Errorf("unexpected match %+v", got)
	}

	resp, err = http.Get(ts.URL + "/api/matches/" + match.ID + "/export?format=txt")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Hz:") {
		t.Errorf("unexpected export %d %q", resp.StatusCode, body)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), ".txt") {
		t.Errorf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}

	resp, err = http.Get(ts.URL + "/api/matches/" + match.ID + "/export?format=wav")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/matches")
	if err != nil {
		t.Fatalf("list matches failed: %v", err)
	}
	var matches ListMatchesResponse
	decode(t, resp, &matches)
	if matches.Count != 1 || matches.Matches[0].ID != match.ID {
		t.Errorf("unexpected match list %+v", matches)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/profiles/"+ref.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/matches/" + match.ID)
	if err != nil {
		t.Fatalf("get match failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("match should be gone with its profile, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/health/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	var metrics MetricsResponse
	decode(t, resp, &metrics)
	if metrics.ProfileCount != 1 || metrics.MatchCount != 0 || metrics.FFTSize != 2048 {
		t.Errorf("unexpected metrics %+v", metrics)
	}
}

func TestMatchProfilesInline(t *testing.T) {
	ts := newTestServer(t)

	mk := func(gains ...float64) *models.EQProfile {
		p := &models.EQProfile{}
		for i, g := range gains {
			p.Bands = append(p.Bands, models.FrequencyBand{
				Frequency:  float64(100 * (i + 1)),
				GainDB:     g,
				Bandwidth:  50,
				Confidence: 1,
			})
		}
		return p
	}

	resp := postJSON(t, ts.URL+"/api/match/profiles", MatchProfilesRequest{
		Reference: mk(-10, -20, -30),
		Input:     mk(-10, -20, -30),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result models.MatchResult
	decode(t, resp, &result)
	if len(result.CorrectionProfile.Bands) != 3 {
		t.Fatalf("expected 3 correction bands, got %d", len(result.CorrectionProfile.Bands))
	}
	for _, b := range result.CorrectionProfile.Bands {
		if math.Abs(b.GainDB) > 1e-9 {
			t.Errorf("self-match should be neutral, got %f dB at %f Hz", b.GainDB, b.Frequency)
		}
	}

	resp = postJSON(t, ts.URL+"/api/match/profiles", MatchProfilesRequest{
		Reference: mk(-10, -20),
		Input:     mk(-10, -20, -30),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("band count mismatch: expected 400, got %d", resp.StatusCode)
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		url    string
		body   any
		status int
	}{
		{"empty samples", "/api/profiles", AnalyzeSamplesRequest{SampleRate: 48000}, http.StatusBadRequest},
		{"too short", "/api/profiles", AnalyzeSamplesRequest{Samples: make([]float64, 100), SampleRate: 48000}, http.StatusBadRequest},
		{"missing ids", "/api/match", MatchRequest{}, http.StatusBadRequest},
		{"unknown ids", "/api/match", MatchRequest{ReferenceID: "a", InputID: "b"}, http.StatusNotFound},
		{"not youtube", "/api/profiles/youtube", AnalyzeYouTubeRequest{YouTubeURL: "https://example.com/x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := postJSON(t, ts.URL+tc.url, tc.body)
		var er ErrorResponse
		decode(t, resp, &er)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.status, resp.StatusCode, er.Message)
		}
	}

	intensity := 2.0
	resp := postJSON(t, ts.URL+"/api/match", MatchRequest{
		ReferenceID: "a",
		InputID:     "b",
		Config:      &MatchConfigRequest{Intensity: &intensity},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid intensity: expected 400, got %d", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/profiles/missing")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing profile: expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalyzeSamplesBodyLimit(t *testing.T) {
	ts := newTestServer(t, func(c *ServerConfig) { c.MaxBodyBytes = 1024 })

	resp := postJSON(t, ts.URL+"/api/profiles", AnalyzeSamplesRequest{
		Name:       "oversized",
		Samples:    samples(3)[:2000],
		SampleRate: 48000,
	})
	var er ErrorResponse
	decode(t, resp, &er)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (%s)", resp.StatusCode, er.Message)
	}

	resp, err := http.Get(ts.URL + "/api/profiles")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var list ListProfilesResponse
	decode(t, resp, &list)
	if list.Count != 0 {
		t.Errorf("oversized body should not be stored, got %d profiles", list.Count)
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if ip := getClientIP(r); ip != "10.0.0.1" {
		t.Errorf("expected RemoteAddr host, got %q", ip)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if ip := getClientIP(r); ip != "1.2.3.4" {
		t.Errorf("expected first forwarded address, got %q", ip)
	}
}
