package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"autoservice/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Admin      AdminConfig      `yaml:"admin"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Feed       FeedConfig       `yaml:"feed"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
}

type APIConfig struct {
	HTTP        APIHTTPConfig         `yaml:"http"`
	RateLimit   APIRateLimitConfig    `yaml:"rate_limit"`
	Submissions SubmissionLimitConfig `yaml:"submissions"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// SubmissionLimitConfig bounds public booking submissions per client address.
type SubmissionLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type AdminConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	Users      []AdminUser   `yaml:"users"`
}

// AdminUser is a console account. PasswordHash is a bcrypt hash.
type AdminUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type CatalogConfig struct {
	CacheTTL  time.Duration        `yaml:"cache_ttl"`
	Services  []models.ServiceType `yaml:"services"`
	TimeSlots []models.TimeSlot    `yaml:"time_slots"`
}

type FeedConfig struct {
	Channel string `yaml:"channel"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
	Debug          bool    `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
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

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

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

	if len(c.Admin.Users) > 0 && (c.Admin.JWTSecret == "" || c.Admin.JWTSecret == "CHANGE_ME") {
		return errors.New("admin jwt secret is required when admin users are configured")
	}
	for _, u := range c.Admin.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("admin user %q must have username and password_hash", u.Username)
		}
	}

	return ValidateCatalog(c.Catalog)
}

// ValidateCatalog rejects duplicate keys and negative prices.
func ValidateCatalog(catalog CatalogConfig) error {
	keys := make(map[string]bool)
	for _, s := range catalog.Services {
		if s.Key == "" {
			return fmt.Errorf("service '%s' has empty key", s.NameKey)
		}
		if s.BasePrice < 0 {
			return fmt.Errorf("service '%s' has negative base price", s.Key)
		}
		if keys[s.Key] {
			return fmt.Errorf("duplicate service key found: %s", s.Key)
		}
		keys[s.Key] = true
	}

	labels := make(map[string]bool)
	for _, slot := range catalog.TimeSlots {
		if slot.Label == "" {
			return errors.New("time slot has empty label")
		}
		if labels[slot.Label] {
			return fmt.Errorf("duplicate time slot found: %s", slot.Label)
		}
		labels[slot.Label] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "autoservice"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Submissions.Limit == 0 {
		c.API.Submissions.Limit = models.SubmissionLimit
	}
	if c.API.Submissions.Window == 0 {
		c.API.Submissions.Window = models.SubmissionWindow * time.Second
	}
	if c.Admin.SessionTTL == 0 {
		c.Admin.SessionTTL = 12 * time.Hour
	}
	if c.Feed.Channel == "" {
		c.Feed.Channel = "bookings:changes"
	}
}
