package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kimipsen/grouper/pkg/config"
	"github.com/kimipsen/grouper/pkg/models"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key per day
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	TotalPeople    int    `gorm:"default:0" json:"total_people"`
	TotalGroups    int    `gorm:"default:0" json:"total_groups"`
	RandomRuns     int    `gorm:"default:0" json:"random_runs"`
	PreferenceRuns int    `gorm:"default:0" json:"preference_runs"`
	WeightedRuns   int    `gorm:"default:0" json:"weighted_runs"`
}

// RunColumn names the usage counter for runs of strategy s
func RunColumn(s models.Strategy) (string, bool) {
	switch s {
	case models.StrategyRandom:
		return "random_runs", true
	case models.StrategyPreferenceBased:
		return "preference_runs", true
	case models.StrategyWeighted:
		return "weighted_runs", true
	}
	return "", false
}

// AddRun counts one run of strategy s
func (u *APIUsage) AddRun(s models.Strategy) {
	switch s {
	case models.StrategyRandom:
		u.RandomRuns++
	case models.StrategyPreferenceBased:
		u.PreferenceRuns++
	case models.StrategyWeighted:
		u.WeightedRuns++
	}
}

// Runs returns the per-strategy run counters keyed by strategy
func (u APIUsage) Runs() map[models.Strategy]int {
	return map[models.Strategy]int{
		models.StrategyRandom:          u.RandomRuns,
		models.StrategyPreferenceBased: u.PreferenceRuns,
		models.StrategyWeighted:        u.WeightedRuns,
	}
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionRecord represents the sessions table
type SessionRecord struct {
	ID                string `gorm:"primaryKey;size:64"`
	Name              string `gorm:"not null"`
	Description       string
	GenderMode        string                          `gorm:"size:16"`
	Preferences       models.PreferenceMap            `gorm:"serializer:json;type:text"`
	PreferenceScoring *models.PreferenceScoring       `gorm:"serializer:json;type:text"`
	CustomWeights     []models.CustomWeightDefinition `gorm:"serializer:json;type:text"`
	People            []PersonRecord                  `gorm:"foreignKey:SessionID"`
	History           []GroupingRecord                `gorm:"foreignKey:SessionID"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (SessionRecord) TableName() string { return "sessions" }

// PersonRecord represents the people table. Person ids are unique per session.
type PersonRecord struct {
	SessionID string `gorm:"primaryKey;size:64"`
	ID        string `gorm:"primaryKey;size:64"`
	Position  int    `gorm:"not null;default:0"`
	Name      string `gorm:"not null"`
	Email     string
	Gender    string             `gorm:"size:16"`
	Weights   map[string]float64 `gorm:"serializer:json;type:text"`
	CreatedAt time.Time
}

func (PersonRecord) TableName() string { return "people" }

// GroupingRecord represents the grouping_results table (a session's history)
type GroupingRecord struct {
	ID                  string                  `gorm:"primaryKey;size:64"`
	SessionID           string                  `gorm:"index;size:64;not null"`
	Strategy            string                  `gorm:"size:32;not null"`
	Settings            models.GroupingSettings `gorm:"serializer:json;type:text"`
	Groups              []models.Group          `gorm:"serializer:json;type:text"`
	OverallSatisfaction *float64
	Timestamp           time.Time `gorm:"index"`
}

func (GroupingRecord) TableName() string { return "grouping_results" }

// Open connects to postgres when DATABASE_URL is set and to the sqlite file
// at DATA_PATH otherwise, then migrates the schema
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if cfg.DatabaseURL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		})
		gormCfg.PrepareStmt = false
	} else {
		dialector = sqlite.Open(cfg.DataPath)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens and migrates a sqlite database at path (":memory:" style
// DSNs included)
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(config.Config{DataPath: path})
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&SessionRecord{}, &PersonRecord{}, &GroupingRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
