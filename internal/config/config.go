package config

import (
	"errors"
	"fmt"
	"os"

	"localpro/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Billing    BillingConfig    `yaml:"billing"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Exports    ExportConfig     `yaml:"exports"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Seed       SeedConfig       `yaml:"seed"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address       string `yaml:"address"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	PoolSize      int    `yaml:"pool_size"`
	EventQueueKey string `yaml:"event_queue_key"`
}

type BillingConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	DefaultTrialDays int    `yaml:"default_trial_days"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	MaxAdvanceDays int    `yaml:"max_advance_days"`
	PageSize       int    `yaml:"page_size"`
	ReconcileTime  string `yaml:"reconcile_time"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type SheetsConfig struct {
	Enabled               bool   `yaml:"enabled"`
	CredentialsFile       string `yaml:"credentials_file"`
	ScheduleSpreadsheetID string `yaml:"schedule_spreadsheet_id"`
}

// SeedConfig carries availability slots provisioned at startup, so a fresh
// deployment has a working calendar before providers edit their own.
type SeedConfig struct {
	Slots []models.AvailabilitySlot `yaml:"slots"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment may already be populated.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Sheets.Enabled {
		if c.Sheets.CredentialsFile == "" {
			return errors.New("sheets.credentials_file is required when sheets sync is enabled")
		}
		if c.Sheets.ScheduleSpreadsheetID == "" {
			return errors.New("sheets.schedule_spreadsheet_id is required when sheets sync is enabled")
		}
	}
	return ValidateSlots(c.Seed.Slots)
}

// ValidateSlots checks seeded slots for invariant violations before they
// reach the database.
func ValidateSlots(slots []models.AvailabilitySlot) error {
	for i := range slots {
		if slots[i].ProviderID == 0 {
			return fmt.Errorf("seed slot %d has no provider", i)
		}
		if err := slots[i].Validate(); err != nil {
			return fmt.Errorf("seed slot %d: %w", i, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Enabled && !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Billing.TimeoutSeconds == 0 {
		c.Billing.TimeoutSeconds = 10
	}
	if c.Billing.DefaultTrialDays == 0 {
		c.Billing.DefaultTrialDays = models.DefaultTrialDays
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Booking.PageSize == 0 {
		c.Booking.PageSize = models.DefaultPageSize
	}
	if c.Booking.ReconcileTime == "" {
		c.Booking.ReconcileTime = "03:00"
	}
	if c.Redis.EventQueueKey == "" {
		c.Redis.EventQueueKey = "notifications:events"
	}
}
