package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.Addr() != ":8080" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Session.TTL != 168*time.Hour {
		t.Errorf("session ttl = %v", cfg.Session.TTL)
	}
	if cfg.RateLimit.Window != time.Minute || cfg.RateLimit.Requests != 10 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
	if want := "host=localhost port=5432 user=katalog password=katalog123 dbname=katalog sslmode=disable"; cfg.Database.DSN() != want {
		t.Errorf("DSN = %q", cfg.Database.DSN())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MIGRATIONS", "true")
	t.Setenv("CATEGORY_CACHE_TTL", "30s")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Host != "db" || cfg.Database.Port != 6543 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if !cfg.App.Migrations {
		t.Error("MIGRATIONS not applied")
	}
	if cfg.Catalog.CategoryCacheTTL != 30*time.Second {
		t.Errorf("cache ttl = %v", cfg.Catalog.CategoryCacheTTL)
	}
	if cfg.Redis.URL != "redis://cache:6379/0" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
	if !strings.HasPrefix(cfg.Database.MigrationURL(), "postgres://katalog:katalog123@db:6543/") {
		t.Errorf("migration url = %q", cfg.Database.MigrationURL())
	}
}

func TestDatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@h:1/d")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN() != "postgres://u:p@h:1/d" || cfg.Database.MigrationURL() != "postgres://u:p@h:1/d" {
		t.Errorf("url not preferred: %q", cfg.Database.DSN())
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  port: \"7000\"\napp:\n  name: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_NAME", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("port from file = %q", cfg.Server.Port)
	}
	if cfg.App.Name != "from-env" {
		t.Errorf("env should win over file, got %q", cfg.App.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateProduction(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"dev secret refused", map[string]string{"ENVIRONMENT": "production", "DEV": "false"}, false},
		{"dev mode refused", map[string]string{"ENVIRONMENT": "production", "SESSION_SECRET": "a-long-secret", "DEV": "true"}, false},
		{"insecure otel refused", map[string]string{"ENVIRONMENT": "production", "SESSION_SECRET": "a-long-secret", "DEV": "false", "OTEL_ENABLED": "true"}, false},
		{"valid", map[string]string{"ENVIRONMENT": "production", "SESSION_SECRET": "a-long-secret", "DEV": "false"}, true},
		{"unknown environment", map[string]string{"ENVIRONMENT": "staging"}, false},
		{"short secret", map[string]string{"SESSION_SECRET": "short"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if (err == nil) != tt.ok {
				t.Errorf("Load err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
