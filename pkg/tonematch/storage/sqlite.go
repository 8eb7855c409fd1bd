//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/ToneMatch/pkg/models"
)

const DefaultDBFile = "tonematch.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Profile struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Name             string `gorm:"index:idx_profile_name"`
	Source           string
	SampleRate       int
	DurationSec      float64
	OverallLoudness  float64
	DynamicRange     float64
	SpectralCentroid float64
	SpectralRolloff  float64
	Bands            []ProfileBand `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time     `gorm:"index:idx_profile_created"`
}

type ProfileBand struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ProfileID  string `gorm:"type:varchar(36);index:idx_profile_band,priority:1"`
	Position   int    `gorm:"index:idx_profile_band,priority:2"`
	Frequency  float64
	GainDB     float64
	Bandwidth  float64
	Confidence float64
}

type Match struct {
	ID                  string `gorm:"primaryKey;type:varchar(36)"`
	ReferenceID         string `gorm:"type:varchar(36);index:idx_match_reference"`
	InputID             string `gorm:"type:varchar(36);index:idx_match_input"`
	Intensity           float64
	MaxCorrection       float64
	SmoothingFactor     float64
	UsePsychoacoustic   bool
	PreserveDynamics    bool
	QualityScore        float64
	DynamicRange        float64
	SpectralCentroid    float64
	SpectralRolloff     float64
	ReferenceNormalized string      // JSON array
	InputNormalized     string      // JSON array
	Warnings            string      // JSON array
	Bands               []MatchBand `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time   `gorm:"index:idx_match_created"`
}

type MatchBand struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MatchID    string `gorm:"type:varchar(36);index:idx_match_band,priority:1"`
	Position   int    `gorm:"index:idx_match_band,priority:2"`
	Frequency  float64
	GainDB     float64
	Bandwidth  float64
	Confidence float64
}

// NewDBClient opens the database named by TONEMATCH_DB_PATH, or
// DefaultDBFile in the working directory.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("TONEMATCH_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serializes writers anyway
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Profile{}, &ProfileBand{}, &Match{}, &MatchBand{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// SaveProfile inserts rec with its bands. A missing ID or CreatedAt is
// filled in and written back to rec.
func (c *DBClient) SaveProfile(rec *models.ProfileRecord) error {
	if err := c.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := Profile{
		ID:               rec.ID,
		Name:             rec.Name,
		Source:           rec.Source,
		SampleRate:       rec.SampleRate,
		DurationSec:      rec.DurationSec,
		OverallLoudness:  rec.Profile.OverallLoudness,
		DynamicRange:     rec.Profile.DynamicRange,
		SpectralCentroid: rec.Profile.SpectralCentroid,
		SpectralRolloff:  rec.Profile.SpectralRolloff,
		CreatedAt:        rec.CreatedAt,
	}
	for i, b := range rec.Profile.Bands {
		row.Bands = append(row.Bands, ProfileBand{
			ProfileID:  rec.ID,
			Position:   i,
			Frequency:  b.Frequency,
			GainDB:     b.GainDB,
			Bandwidth:  b.Bandwidth,
			Confidence: b.Confidence,
		})
	}

	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	return nil
}

func orderedBands(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (c *DBClient) GetProfile(id string) (*models.ProfileRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var row Profile
	err := c.DB.Preload("Bands", orderedBands).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// ListProfiles returns every profile, newest first.
func (c *DBClient) ListProfiles() ([]models.ProfileRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Profile
	if err := c.DB.Preload("Bands", orderedBands).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	out := make([]models.ProfileRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out, nil
}

// DeleteProfile removes a profile, its bands and every match that refers
// to it.
func (c *DBClient) DeleteProfile(id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var matchIDs []string
		if err := tx.Model(&Match{}).
			Where("reference_id = ? OR input_id = ?", id, id).
			Pluck("id", &matchIDs).Error; err != nil {
			return err
		}
		if len(matchIDs) > 0 {
			if err := tx.Where("match_id IN ?", matchIDs).Delete(&MatchBand{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", matchIDs).Delete(&Match{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("profile_id = ?", id).Delete(&ProfileBand{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Profile{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

// SaveMatch inserts rec with its correction bands. A missing ID or CreatedAt
// is filled in and written back to rec.
func (c *DBClient) SaveMatch(rec *models.MatchRecord) error {
	if err := c.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	refNorm, err := json.Marshal(rec.Result.ReferenceNormalized)
	if err != nil {
		return fmt.Errorf("encoding reference curve: %w", err)
	}
	inpNorm, err := json.Marshal(rec.Result.InputNormalized)
	if err != nil {
		return fmt.Errorf("encoding input curve: %w", err)
	}
	warnings, err := json.Marshal(rec.Result.Warnings)
	if err != nil {
		return fmt.Errorf("encoding warnings: %w", err)
	}

	cp := rec.Result.CorrectionProfile
	row := Match{
		ID:                  rec.ID,
		ReferenceID:         rec.ReferenceID,
		InputID:             rec.InputID,
		Intensity:           rec.Config.Intensity,
		MaxCorrection:       rec.Config.MaxCorrection,
		SmoothingFactor:     rec.Config.SmoothingFactor,
		UsePsychoacoustic:   rec.Config.UsePsychoacoustic,
		PreserveDynamics:    rec.Config.PreserveDynamics,
		QualityScore:        rec.Result.QualityScore,
		DynamicRange:        cp.DynamicRange,
		SpectralCentroid:    cp.SpectralCentroid,
		SpectralRolloff:     cp.SpectralRolloff,
		ReferenceNormalized: string(refNorm),
		InputNormalized:     string(inpNorm),
		Warnings:            string(warnings),
		CreatedAt:           rec.CreatedAt,
	}
	for i, b := range cp.Bands {
		row.Bands = append(row.Bands, MatchBand{
			MatchID:    rec.ID,
			Position:   i,
			Frequency:  b.Frequency,
			GainDB:     b.GainDB,
			Bandwidth:  b.Bandwidth,
			Confidence: b.Confidence,
		})
	}

	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	return nil
}

func (c *DBClient) GetMatch(id string) (*models.MatchRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var row Match
	err := c.DB.Preload("Bands", orderedBands).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying match: %w", err)
	}
	return row.record()
}

// ListMatches returns every match, newest first.
func (c *DBClient) ListMatches() ([]models.MatchRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Match
	if err := c.DB.Preload("Bands", orderedBands).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	out := make([]models.MatchRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Counts reports the number of stored profiles and matches.
func (c *DBClient) Counts() (profiles, matches int64, err error) {
	if err := c.ready(); err != nil {
		return 0, 0, err
	}
	if err := c.DB.Model(&Profile{}).Count(&profiles).Error; err != nil {
		return 0, 0, fmt.Errorf("counting profiles: %w", err)
	}
	if err := c.DB.Model(&Match{}).Count(&matches).Error; err != nil {
		return 0, 0, fmt.Errorf("counting matches: %w", err)
	}
	return profiles, matches, nil
}

func (p *Profile) record() models.ProfileRecord {
	rec := models.ProfileRecord{
		ID:          p.ID,
		Name:        p.Name,
		Source:      p.Source,
		SampleRate:  p.SampleRate,
		DurationSec: p.DurationSec,
		CreatedAt:   p.CreatedAt,
		Profile: models.EQProfile{
			Bands:            make([]models.FrequencyBand, len(p.Bands)),
			OverallLoudness:  p.OverallLoudness,
			DynamicRange:     p.DynamicRange,
			SpectralCentroid: p.SpectralCentroid,
			SpectralRolloff:  p.SpectralRolloff,
		},
	}
	for i, b := range p.Bands {
		rec.Profile.Bands[i] = models.FrequencyBand{
			Frequency:  b.Frequency,
			GainDB:     b.GainDB,
			Bandwidth:  b.Bandwidth,
			Confidence: b.Confidence,
		}
	}
	return rec
}

func (m *Match) record() (*models.MatchRecord, error) {
	rec := &models.MatchRecord{
		ID:          m.ID,
		ReferenceID: m.ReferenceID,
		InputID:     m.InputID,
		CreatedAt:   m.CreatedAt,
		Config: models.MatchConfig{
			Intensity:         m.Intensity,
			MaxCorrection:     m.MaxCorrection,
			SmoothingFactor:   m.SmoothingFactor,
			UsePsychoacoustic: m.UsePsychoacoustic,
			PreserveDynamics:  m.PreserveDynamics,
		},
		Result: models.MatchResult{
			CorrectionProfile: models.EQProfile{
				Bands:            make([]models.FrequencyBand, len(m.Bands)),
				DynamicRange:     m.DynamicRange,
				SpectralCentroid: m.SpectralCentroid,
				SpectralRolloff:  m.SpectralRolloff,
			},
			QualityScore: m.QualityScore,
		},
	}
	for i, b := range m.Bands {
		rec.Result.CorrectionProfile.Bands[i] = models.FrequencyBand{
			Frequency:  b.Frequency,
			GainDB:     b.GainDB,
			Bandwidth:  b.Bandwidth,
			Confidence: b.Confidence,
		}
	}

	for _, f := range []struct {
		src string
		dst any
	}{
		{m.ReferenceNormalized, &rec.Result.ReferenceNormalized},
		{m.InputNormalized, &rec.Result.InputNormalized},
		{m.Warnings, &rec.Result.Warnings},
	} {
		if f.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decoding match %s: %w", m.ID, err)
		}
	}
	if rec.Result.Warnings == nil {
		rec.Result.Warnings = []string{}
	}
	return rec, nil
}
