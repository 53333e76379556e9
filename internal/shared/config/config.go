package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	EventDB  EventDBConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	SLA      SLAConfig
	Scoring  ScoringConfig
	Calendar CalendarConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventDBConfig holds configuration for EventStoreDB.
type EventDBConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret string
	// PipelineToken is the shared-secret service token presented by the
	// intake/allocation pipeline when no JWT is used (internal calls).
	PipelineToken string
}

// LedgerConfig holds connection settings for the legacy SQL Server
// billing ledger that new delinquent invoices are imported from.
type LedgerConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	Encrypt         bool
	PollIntervalSec int
	InvoiceTable    string
}

// SLAConfig holds deadline monitoring settings.
type SLAConfig struct {
	// WarningThresholdHours is the at-risk window before breach.
	WarningThresholdHours float64
	// ScanSchedule is a cron expression for the breach scan.
	ScanSchedule string
	// Default obligation durations in business hours.
	FirstContactHours float64
	WeeklyUpdateHours float64
	ResolutionHours   float64
}

// ScoringConfig holds agency scoring weights. Values are documented
// defaults, overridable per deployment.
type ScoringConfig struct {
	CapacityWeight       float64
	PerformanceWeight    float64
	IndustryMatchBonus   float64
	SegmentMatchBonus    float64
}

// CalendarConfig points at the business calendar definition.
type CalendarConfig struct {
	// Path to a YAML calendar file; empty means built-in defaults.
	Path string
	// MaxWalkDays bounds the calendar walk against malformed calendars.
	MaxWalkDays int
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "debtflow"),
			Password: getEnv("DB_PASSWORD", "debtflow"),
			Database: getEnv("DB_NAME", "debtflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventDB: EventDBConfig{
			Host:     getEnv("EVENTDB_HOST", "localhost"),
			Port:     getEnvInt("EVENTDB_PORT", 2113),
			Insecure: getEnvBool("EVENTDB_INSECURE", true),
			Username: getEnv("EVENTDB_USERNAME", ""),
			Password: getEnv("EVENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			PipelineToken: getEnv("PIPELINE_TOKEN", ""),
		},
		Ledger: LedgerConfig{
			Enabled:         getEnvBool("LEDGER_ENABLED", false),
			Host:            getEnv("LEDGER_HOST", "localhost"),
			Port:            getEnvInt("LEDGER_PORT", 1433),
			User:            getEnv("LEDGER_USER", "sa"),
			Password:        getEnv("LEDGER_PASSWORD", ""),
			Database:        getEnv("LEDGER_DB", "billing"),
			Encrypt:         getEnvBool("LEDGER_ENCRYPT", false),
			PollIntervalSec: getEnvInt("LEDGER_POLL_INTERVAL_SEC", 300),
			InvoiceTable:    getEnv("LEDGER_INVOICE_TABLE", "dbo.DelinquentInvoices"),
		},
		SLA: SLAConfig{
			WarningThresholdHours: getEnvFloat("SLA_WARNING_THRESHOLD_HOURS", 8),
			ScanSchedule:          getEnv("SLA_SCAN_SCHEDULE", "@every 5m"),
			FirstContactHours:     getEnvFloat("SLA_FIRST_CONTACT_HOURS", 24),
			WeeklyUpdateHours:     getEnvFloat("SLA_WEEKLY_UPDATE_HOURS", 40),
			ResolutionHours:       getEnvFloat("SLA_RESOLUTION_HOURS", 240),
		},
		Scoring: ScoringConfig{
			CapacityWeight:     getEnvFloat("SCORING_CAPACITY_WEIGHT", 40),
			PerformanceWeight:  getEnvFloat("SCORING_PERFORMANCE_WEIGHT", 0.4),
			IndustryMatchBonus: getEnvFloat("SCORING_INDUSTRY_BONUS", 10),
			SegmentMatchBonus:  getEnvFloat("SCORING_SEGMENT_BONUS", 10),
		},
		Calendar: CalendarConfig{
			Path:        getEnv("CALENDAR_PATH", ""),
			MaxWalkDays: getEnvInt("CALENDAR_MAX_WALK_DAYS", 366),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
