//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

func setupTestDB(t *testing.T) *DBClient {
	t.Helper()
	db, err := NewDBClientWithPath(filepath.Join(t.TempDir(), "nested", "test.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testProfile(name string, gains ...float64) *models.ProfileRecord {
	rec := &models.ProfileRecord{
		Name:        name,
		Source:      name + ".wav",
		SampleRate:  48000,
		DurationSec: 3.5,
		Profile: models.EQProfile{
			OverallLoudness:  -12,
			DynamicRange:     35,
			SpectralCentroid: 1500,
			SpectralRolloff:  7000,
		},
	}
	for i, g := range gains {
		f := models.DefaultBands[i]
		rec.Profile.Bands = append(rec.Profile.Bands, models.FrequencyBand{
			Frequency: f, GainDB: g, Bandwidth: f * 0.23, Confidence: 0.9,
		})
	}
	return rec
}

func TestProfileRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	rec := testProfile("reference", -20, -18, -15, -17, -19, -21, -24)

	if err := db.SaveProfile(rec); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatal("SaveProfile should assign ID and CreatedAt")
	}

	got, err := db.GetProfile(rec.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Name != rec.Name || got.Source != rec.Source || got.SampleRate != rec.SampleRate {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Profile, rec.Profile) {
		t.Errorf("profile mismatch:\n got %+v\nwant %+v", got.Profile, rec.Profile)
	}
	if d := got.CreatedAt.Sub(rec.CreatedAt); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("created_at %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetProfile("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.GetMatch("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteProfile("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListProfilesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		rec := testProfile(name, 1, 2)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := db.SaveProfile(rec); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}
	}

	list, err := db.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(list))
	}
	if list[0].Name != "third" || list[2].Name != "first" {
		t.Errorf("unexpected order: %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
	if len(list[1].Profile.Bands) != 2 {
		t.Errorf("expected bands to be loaded, got %d", len(list[1].Profile.Bands))
	}
}

func saveMatch(t *testing.T, db *DBClient, refID, inpID string) *models.MatchRecord {
	t.Helper()
	rec := &models.MatchRecord{
		ReferenceID: refID,
		InputID:     inpID,
		Config:      models.DefaultMatchConfig(),
		Result: models.MatchResult{
			CorrectionProfile: models.EQProfile{
				Bands: []models.FrequencyBand{
					{Frequency: 31.5, GainDB: 1.5, Bandwidth: 7.245, Confidence: 0.8},
					{Frequency: 63, GainDB: -2, Bandwidth: 14.49, Confidence: 0.7},
				},
				DynamicRange:     35,
				SpectralCentroid: 1500,
				SpectralRolloff:  7000,
			},
			ReferenceNormalized: []float64{0.5, -0.5},
			InputNormalized:     []float64{-1, 1},
			QualityScore:        0.82,
			Warnings:            []string{"63 Hz: correction limited from -7.0 dB to -6.0 dB"},
		},
	}
	if err := db.SaveMatch(rec); err != nil {
		t.Fatalf("SaveMatch failed: %v", err)
	}
	return rec
}

func TestMatchRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ref, inp := testProfile("ref", 1, 2), testProfile("inp", 3, 4)
	db.SaveProfile(ref)
	db.SaveProfile(inp)

	rec := saveMatch(t, db, ref.ID, inp.ID)

	got, err := db.GetMatch(rec.ID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if got.ReferenceID != ref.ID || got.InputID != inp.ID {
		t.Errorf("profile references mismatch: %+v", got)
	}
	if got.Config != rec.Config {
		t.Errorf("config mismatch: %+v vs %+v", got.Config, rec.Config)
	}
	if !reflect.DeepEqual(got.Result, rec.Result) {
		t.Errorf("result mismatch:\n got %+v\nwant %+v", got.Result, rec.Result)
	}

	list, err := db.ListMatches()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListMatches = %d, %v", len(list), err)
	}
}

func TestEmptyWarningsStayEmpty(t *testing.T) {
	db := setupTestDB(t)
	rec := &models.MatchRecord{ReferenceID: "a", InputID: "b", Result: models.MatchResult{Warnings: []string{}}}
	if err := db.SaveMatch(rec); err != nil {
		t.Fatalf("SaveMatch failed: %v", err)
	}
	got, err := db.GetMatch(rec.ID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if got.Result.Warnings == nil || len(got.Result.Warnings) != 0 {
		t.Errorf("expected empty warnings, got %#v", got.Result.Warnings)
	}
}

func TestDeleteProfileCascades(t *testing.T) {
	db := setupTestDB(t)
	ref, inp, other := testProfile("ref", 1), testProfile("inp", 2), testProfile("other", 3)
	for _, p := range []*models.ProfileRecord{ref, inp, other} {
		if err := db.SaveProfile(p); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}
	}
	doomed := saveMatch(t, db, ref.ID, inp.ID)
	kept := saveMatch(t, db, other.ID, inp.ID)

	if err := db.DeleteProfile(ref.ID); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}

	if _, err := db.GetProfile(ref.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("profile still present: %v", err)
	}
	if _, err := db.GetMatch(doomed.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("match referencing deleted profile still present: %v", err)
	}
	if _, err := db.GetMatch(kept.ID); err != nil {
		t.Errorf("unrelated match removed: %v", err)
	}

	var orphans int64
	db.DB.Model(&ProfileBand{}).Where("profile_id = ?", ref.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("expected band rows removed, found %d", orphans)
	}
	db.DB.Model(&MatchBand{}).Where("match_id = ?", doomed.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("expected match band rows removed, found %d", orphans)
	}

	profiles, matches, err := db.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if profiles != 2 || matches != 1 {
		t.Errorf("counts = %d profiles, %d matches; want 2, 1", profiles, matches)
	}
}

func TestNilClient(t *testing.T) {
	var db *DBClient
	if err := db.Close(); err != nil {
		t.Errorf("Close on nil client: %v", err)
	}
	if _, err := db.ListProfiles(); err == nil {
		t.Error("expected error from nil client")
	}
}
