package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoservice/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("AUTOSERVICE_TEST_SECRET", "s3cret")
	// bcrypt hashes contain '$' and must come from the environment.
	t.Setenv("AUTOSERVICE_TEST_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	yamlContent := `
database:
  path: "test.db"
admin:
  jwt_secret: "${AUTOSERVICE_TEST_SECRET}"
  session_ttl: 30m
  users:
    - username: "admin"
      password_hash: "${AUTOSERVICE_TEST_HASH}"
catalog:
  cache_ttl: 5m
  services:
    - key: "oil_change"
      name_key: "service.oil_change"
      base_price: 50
      duration_minutes: 30
      active: true
  time_slots:
    - label: "09:00"
      order_index: 1
      active: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Admin.JWTSecret != "s3cret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.Admin.JWTSecret)
	}
	if len(cfg.Admin.Users) != 1 || cfg.Admin.Users[0].PasswordHash != "$2a$10$abcdefghijklmnopqrstuv" {
		t.Errorf("expected admin hash from env, got %+v", cfg.Admin.Users)
	}
	if cfg.Admin.SessionTTL != 30*time.Minute {
		t.Errorf("expected session ttl 30m, got %s", cfg.Admin.SessionTTL)
	}
	if cfg.Catalog.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache ttl 5m, got %s", cfg.Catalog.CacheTTL)
	}
	if len(cfg.Catalog.Services) != 1 || cfg.Catalog.Services[0].BasePrice != 50 {
		t.Errorf("expected 1 service priced 50, got %+v", cfg.Catalog.Services)
	}
	if len(cfg.Catalog.TimeSlots) != 1 || cfg.Catalog.TimeSlots[0].Label != "09:00" {
		t.Errorf("expected slot 09:00, got %+v", cfg.Catalog.TimeSlots)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin: AdminConfig{
					JWTSecret: "secret",
					Users:     []AdminUser{{Username: "admin", PasswordHash: "hash"}},
				},
			},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "admin users without secret",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    AdminConfig{Users: []AdminUser{{Username: "admin", PasswordHash: "hash"}}},
			},
			wantErr: true,
		},
		{
			name: "admin user without hash",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    AdminConfig{JWTSecret: "secret", Users: []AdminUser{{Username: "admin"}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.API.Submissions.Limit != models.SubmissionLimit {
		t.Errorf("expected default submission limit %d, got %d", models.SubmissionLimit, cfg.API.Submissions.Limit)
	}
	if cfg.API.Submissions.Window != 10*time.Minute {
		t.Errorf("expected default submission window 10m, got %s", cfg.API.Submissions.Window)
	}
	if cfg.Feed.Channel != "bookings:changes" {
		t.Errorf("expected default feed channel, got %s", cfg.Feed.Channel)
	}
	if cfg.Admin.SessionTTL != 12*time.Hour {
		t.Errorf("expected default session ttl 12h, got %s", cfg.Admin.SessionTTL)
	}
}

func TestValidateCatalog(t *testing.T) {
	tests := []struct {
		name    string
		catalog CatalogConfig
		wantErr bool
	}{
		{
			name: "valid catalog",
			catalog: CatalogConfig{
				Services:  []models.ServiceType{{Key: "a", BasePrice: 10}, {Key: "b", BasePrice: 0}},
				TimeSlots: []models.TimeSlot{{Label: "09:00"}, {Label: "10:00"}},
			},
			wantErr: false,
		},
		{
			name:    "duplicate service key",
			catalog: CatalogConfig{Services: []models.ServiceType{{Key: "a"}, {Key: "a"}}},
			wantErr: true,
		},
		{
			name:    "negative price",
			catalog: CatalogConfig{Services: []models.ServiceType{{Key: "a", BasePrice: -1}}},
			wantErr: true,
		},
		{
			name:    "empty key",
			catalog: CatalogConfig{Services: []models.ServiceType{{NameKey: "x"}}},
			wantErr: true,
		},
		{
			name:    "duplicate slot",
			catalog: CatalogConfig{TimeSlots: []models.TimeSlot{{Label: "09:00"}, {Label: "09:00"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCatalog(tt.catalog)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCatalog() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
