package app

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/plugtech/findash/internal/analytics"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	DBDriver string `envconfig:"DB_DRIVER" default:"firebirdsql" validate:"oneof=firebirdsql pgx"`
	DBDSN    string `envconfig:"DB_DSN" required:"true"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m" validate:"gt=0"`
	CacheSize     int           `envconfig:"CACHE_SIZE" default:"512" validate:"gt=0"`

	RegistryFile string `envconfig:"REGISTRY_FILE"`

	LegalCostCenter    int64   `envconfig:"LEGAL_COST_CENTER" default:"4240340" validate:"gt=0"`
	OverdueGraceDays   int     `envconfig:"OVERDUE_GRACE_DAYS" default:"5" validate:"gte=0"`
	ExcludedAccountIDs []int64 `envconfig:"EXCLUDED_ACCOUNT_IDS" default:"32,33"`
	Timezone           string  `envconfig:"TIMEZONE" default:"America/Sao_Paulo"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" validate:"omitempty,url"`
}

var configValidator = validator.New()

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DBDSN == "" {
		return nil, errors.New("database dsn must be provided")
	}
	if err := configValidator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	if c == nil || c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Analytics derives the report constants.
func (c *Config) Analytics() (analytics.Config, error) {
	out := analytics.DefaultConfig()
	if c == nil {
		return out, nil
	}
	loc, err := c.Location()
	if err != nil {
		return out, err
	}
	out.Location = loc
	out.LegalCostCenter = c.LegalCostCenter
	out.OverdueGraceDays = c.OverdueGraceDays
	out.ExcludedAccountIDs = append([]int64(nil), c.ExcludedAccountIDs...)
	return out, nil
}
