package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Key        string         `gorm:"unique;not null" json:"-"`
	Name       string         `gorm:"not null" json:"name"`
	KeyPreview string         `json:"key_preview"`
	RateLimit  int            `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time      `json:"created_at"`
	LastUsed   *time.Time     `json:"last_used"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// APIUsage represents the api_usages table
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalEvents  int    `gorm:"default:0" json:"total_events"`
	TotalLeaders int    `gorm:"default:0" json:"total_leaders"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScheduleRun is one persisted engine run. Query endpoints read the latest.
type ScheduleRun struct {
	ID               uint                     `gorm:"primaryKey" json:"-"`
	UUID             string                   `gorm:"uniqueIndex;size:36;not null" json:"run_id"`
	Source           string                   `json:"source"`
	TotalLeaders     int                      `json:"total_leaders"`
	TotalEvents      int                      `json:"total_events"`
	TotalAssignments int                      `json:"total_assignments"`
	TotalDemand      int                      `json:"total_demand"`
	TotalSupply      int                      `json:"total_supply"`
	ShortageRatio    float64                  `json:"shortage_ratio"`
	Rounds           int                      `json:"rounds"`
	Summary          models.SchedulingSummary `gorm:"serializer:json" json:"summary"`
	CreatedAt        time.Time                `json:"created_at"`
}

// LeaderRecord is a leader as submitted to a run.
type LeaderRecord struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	RunID        uint   `gorm:"index;not null" json:"-"`
	Position     int    `json:"-"`
	Name         string `json:"name"`
	Email        string `gorm:"index" json:"email"`
	Availability string `json:"availability"`
}

// AssignmentRecord is one leader-event pairing of a run.
type AssignmentRecord struct {
	ID            uint    `gorm:"primaryKey" json:"-"`
	RunID         uint    `gorm:"index;not null" json:"-"`
	Position      int     `json:"-"`
	EventPosition int     `json:"-"`
	LeaderEmail   string  `gorm:"index" json:"leader_email"`
	Event         string  `gorm:"index" json:"event"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Hours         float64 `json:"hours"`
}

// EventStaffingRecord is the staffing outcome of one event of a run.
type EventStaffingRecord struct {
	ID                 uint    `gorm:"primaryKey" json:"-"`
	RunID              uint    `gorm:"index;not null" json:"-"`
	Position           int     `json:"-"`
	Event              string  `gorm:"index" json:"event"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	LeadersNeeded      int     `json:"leaders_needed"`
	LeadersAssigned    int     `json:"leaders_assigned"`
	AdjustedTarget     int     `json:"adjusted_target"`
	StaffingPercentage float64 `json:"staffing_percentage"`
	FullyStaffed       bool    `json:"fully_staffed"`
	TimeSlot           string  `json:"time_slot"`
	DurationHours      float64 `json:"duration_hours"`
	Location           string  `json:"location"`
	IsMeal             bool    `json:"is_meal"`
	IsCore             bool    `json:"is_core"`
	IsIndoor           bool    `json:"is_indoor"`
	IsOutdoor          bool    `json:"is_outdoor"`
}

// SummaryMetric is one Metric/Value row of a run's summary table.
type SummaryMetric struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RunID    uint   `gorm:"index;not null" json:"-"`
	Position int    `json:"-"`
	Metric   string `json:"metric"`
	Value    string `json:"value"`
}

// ConflictRecord is a residual time conflict found after a run.
type ConflictRecord struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	RunID       uint   `gorm:"index;not null" json:"-"`
	Leader      string `json:"leader"`
	EventA      string `json:"event_a"`
	EventB      string `json:"event_b"`
	OverlapTime string `json:"overlap_time"`
}

// MealEligibilityRecord entitles a leader to a meal in a run.
type MealEligibilityRecord struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	RunID       uint   `gorm:"index;not null" json:"-"`
	Position    int    `json:"-"`
	MealEvent   string `json:"meal_name"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	LeaderEmail string `gorm:"index" json:"eligible_leader"`
	Reason      string `json:"reason"`
}

// Tables lists every model managed by Migrate.
func Tables() []any {
	return []any{
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&ScheduleRun{}, &LeaderRecord{}, &AssignmentRecord{}, &EventStaffingRecord{},
		&SummaryMetric{}, &ConflictRecord{}, &MealEligibilityRecord{},
	}
}

// Open connects to Postgres when a URL is configured and to SQLite otherwise,
// then migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if cfg.URL != "" {
		gcfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), gcfg)
	} else {
		path := cfg.Path
		if path == "" {
			path = "orientation.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
