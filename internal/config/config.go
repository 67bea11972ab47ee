package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"auto"`

	DBHost     string `env:"DB_HOST" default:"localhost"`
	DBPort     string `env:"DB_PORT" default:"5432"`
	DBUser     string `env:"DB_USER" default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" default:"gitforum"`
	DBSSLMode  string `env:"DB_SSLMODE" default:"disable"`

	JWTSecret   string `env:"JWT_SECRET"`
	CORSOrigins string `env:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	RedisURL string `env:"REDIS_URL"`
	NATSURL  string `env:"NATS_URL"`

	N8NCommitGenURL  string        `env:"N8N_COMMIT_GEN_URL"`
	N8NCodeReviewURL string        `env:"N8N_CODE_REVIEW_URL"`
	N8NSecretKey     string        `env:"N8N_SECRET_KEY"`
	N8NTimeout       time.Duration `env:"N8N_TIMEOUT" default:"30s"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM"`
	AlertPhone       string `env:"ALERT_PHONE"`

	Trending Trending
}

// Trending tunes the score engine.
type Trending struct {
	DebounceWindow time.Duration `env:"TRENDING_DEBOUNCE_WINDOW" default:"5s"`
	SweepInterval  time.Duration `env:"TRENDING_SWEEP_INTERVAL" default:"15m"`
	PollInterval   time.Duration `env:"TRENDING_POLL_INTERVAL" default:"1s"`
	ClaimBatch     int           `env:"TRENDING_CLAIM_BATCH" default:"100"`
	SweepPageSize  int           `env:"TRENDING_SWEEP_PAGE" default:"500"`
	RetryAttempts  int           `env:"TRENDING_RETRY_ATTEMPTS" default:"5"`
	RetryBackoff   time.Duration `env:"TRENDING_RETRY_BACKOFF" default:"200ms"`
	AlertCooldown  time.Duration `env:"TRENDING_ALERT_COOLDOWN" default:"15m"`
	EmbeddedWorker bool          `env:"EMBEDDED_WORKER" default:"true"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// DSN is the gorm postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// AlertsEnabled reports whether every Twilio setting is present.
func (c *Config) AlertsEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != "" && c.AlertPhone != ""
}

func validate(cfg *Config) error {
	if cfg.JWTSecret == "" && !cfg.IsDevelopment() {
		return errors.New("JWT_SECRET is required")
	}

	switch cfg.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of auto, text, json, got %q", cfg.LogFormat)
	}

	durations := map[string]time.Duration{
		"TRENDING_DEBOUNCE_WINDOW": cfg.Trending.DebounceWindow,
		"TRENDING_SWEEP_INTERVAL":  cfg.Trending.SweepInterval,
		"TRENDING_POLL_INTERVAL":   cfg.Trending.PollInterval,
		"TRENDING_RETRY_BACKOFF":   cfg.Trending.RetryBackoff,
		"TRENDING_ALERT_COOLDOWN":  cfg.Trending.AlertCooldown,
		"N8N_TIMEOUT":              cfg.N8NTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	counts := map[string]int{
		"TRENDING_CLAIM_BATCH":    cfg.Trending.ClaimBatch,
		"TRENDING_SWEEP_PAGE":     cfg.Trending.SweepPageSize,
		"TRENDING_RETRY_ATTEMPTS": cfg.Trending.RetryAttempts,
	}
	for name, n := range counts {
		if n < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}

	return nil
}
