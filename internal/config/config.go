// Package config provides application configuration layered from defaults,
// an optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DevSessionSecret is the fallback secret; refused in production.
const DevSessionSecret = "devsessionsecret"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	App       AppConfig       `koanf:"app"`
	Session   SessionConfig   `koanf:"session"`
	Admin     AdminConfig     `koanf:"admin"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Uploads   UploadsConfig   `koanf:"uploads"`
	Mail      MailConfig      `koanf:"mail"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL connection settings. URL, when set, wins
// over the individual fields.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host" validate:"required_without=URL"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"name" validate:"required_without=URL"`
	SSLMode  string `koanf:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Debug    bool   `koanf:"debug"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MigrationURL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) MigrationURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"oneof=development test production"`
	Dev         bool   `koanf:"dev"`
	Migrations  bool   `koanf:"migrations"`
	Seed        bool   `koanf:"seed"`
	BaseURL     string `koanf:"base_url" validate:"required,url"`
	StaticDir   string `koanf:"static_dir"`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret       string        `koanf:"secret" validate:"required,min=8"`
	TTL          time.Duration `koanf:"ttl" validate:"gt=0"`
	SecureCookie bool          `koanf:"secure_cookie"`
}

// AdminConfig holds the bootstrap administrator credentials.
type AdminConfig struct {
	Email    string `koanf:"email" validate:"omitempty,email"`
	Password string `koanf:"password"`
}

// RedisConfig is optional; an empty URL keeps caches and rate limits in-process.
type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// RateLimitConfig applies to the credential endpoints.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gt=0"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
	Burst    int           `koanf:"burst" validate:"gt=0"`
}

// CatalogConfig tunes the catalog listing.
type CatalogConfig struct {
	CategoryCacheTTL time.Duration `koanf:"category_cache_ttl"`
}

// UploadsConfig locates user uploads on disk.
type UploadsConfig struct {
	Dir      string `koanf:"dir" validate:"required"`
	MaxBytes int64  `koanf:"max_bytes" validate:"gt=0"`
}

// MailConfig enables SMTP delivery when Host is set; otherwise mails are logged.
type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from" validate:"omitempty,email"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// OtelConfig configures tracing export.
type OtelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

var defaults = map[string]any{
	"server.host":             "",
	"server.port":             "8080",
	"server.read_timeout":     "15s",
	"server.write_timeout":    "15s",
	"server.idle_timeout":     "60s",
	"server.shutdown_timeout": "10s",

	"database.host":     "localhost",
	"database.port":     5432,
	"database.user":     "katalog",
	"database.password": "katalog123",
	"database.name":     "katalog",
	"database.sslmode":  "disable",

	"app.name":        "go-katalog",
	"app.version":     "1.0.0",
	"app.environment": "development",
	"app.dev":         true,
	"app.migrations":  false,
	"app.seed":        true,
	"app.base_url":    "http://localhost:8080",
	"app.static_dir":  "static",

	"session.secret":        DevSessionSecret,
	"session.ttl":           "168h",
	"session.secure_cookie": false,

	"redis.pool_size":      10,
	"redis.min_idle_conns": 2,

	"rate_limit.requests": 10,
	"rate_limit.window":   "1m",
	"rate_limit.burst":    5,

	"catalog.category_cache_ttl": "5m",

	"uploads.dir":       "public",
	"uploads.max_bytes": 10 << 20,

	"mail.port": 587,

	"log.level": "info",

	"otel.enabled":      false,
	"otel.insecure":     true,
	"otel.sample_rate":  0.1,
	"otel.service_name": "go-katalog",
}

// envKeyMap keeps the historical variable names working.
var envKeyMap = map[string]string{
	"PORT":                        "server.port",
	"HOST":                        "server.host",
	"SERVER_READ_TIMEOUT":         "server.read_timeout",
	"SERVER_WRITE_TIMEOUT":        "server.write_timeout",
	"SERVER_IDLE_TIMEOUT":         "server.idle_timeout",
	"SERVER_SHUTDOWN_TIMEOUT":     "server.shutdown_timeout",
	"DATABASE_URL":                "database.url",
	"DATABASE_DSN":                "database.url",
	"DB_HOST":                     "database.host",
	"DB_PORT":                     "database.port",
	"DB_USER":                     "database.user",
	"DB_PASSWORD":                 "database.password",
	"DB_NAME":                     "database.name",
	"DB_SSLMODE":                  "database.sslmode",
	"DB_DEBUG":                    "database.debug",
	"APP_NAME":                    "app.name",
	"ENVIRONMENT":                 "app.environment",
	"DEV":                         "app.dev",
	"MIGRATIONS":                  "app.migrations",
	"DB_SEED":                     "app.seed",
	"BASE_URL":                    "app.base_url",
	"STATIC_DIR":                  "app.static_dir",
	"SESSION_SECRET":              "session.secret",
	"SESSION_TTL":                 "session.ttl",
	"SESSION_SECURE_COOKIE":       "session.secure_cookie",
	"ADMIN_EMAIL":                 "admin.email",
	"ADMIN_PASSWORD":              "admin.password",
	"REDIS_URL":                   "redis.url",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"CATEGORY_CACHE_TTL":          "catalog.category_cache_ttl",
	"UPLOADS_DIR":                 "uploads.dir",
	"UPLOADS_MAX_BYTES":           "uploads.max_bytes",
	"SMTP_HOST":                   "mail.host",
	"SMTP_PORT":                   "mail.port",
	"EMAIL_USER":                  "mail.username",
	"EMAIL_PASS":                  "mail.password",
	"EMAIL_FROM":                  "mail.from",
	"LOG_LEVEL":                   "log.level",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	return envKeyMap[s]
}

// Load reads defaults, then configPath (YAML, optional), then the environment.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the production-only rules.
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.IsProduction() {
		if c.Session.Secret == DevSessionSecret {
			return errors.New("SESSION_SECRET must be set in production")
		}
		if c.App.Dev {
			return errors.New("DEV must be off in production")
		}
		if c.Otel.Enabled && c.Otel.Insecure {
			return errors.New("OTEL_INSECURE must be false in production")
		}
	}
	return nil
}
