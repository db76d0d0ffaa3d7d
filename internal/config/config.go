package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	TriageURL      string   `mapstructure:"TRIAGE_URL"`
	TriageInterval string   `mapstructure:"TRIAGE_INTERVAL"`
	TriageBatch    int      `mapstructure:"TRIAGE_BATCH_SIZE"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TRIAGE_INTERVAL", "2m")
	v.SetDefault("TRIAGE_BATCH_SIZE", 20)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("TRIAGE_URL")
	v.BindEnv("TRIAGE_INTERVAL")
	v.BindEnv("TRIAGE_BATCH_SIZE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TriageTick parses TRIAGE_INTERVAL, falling back to the 2-minute default
// when the value is empty or malformed.
func (c *Config) TriageTick() time.Duration {
	d, err := time.ParseDuration(c.TriageInterval)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate checks that the configuration is safe to run. Outside development
// JWT_SECRET must be set so route authentication is enforced, and the triage
// service URL must be configured for the background worker.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.TriageURL == "" {
		return fmt.Errorf("TRIAGE_URL is required")
	}
	if c.TriageBatch <= 0 {
		return fmt.Errorf("TRIAGE_BATCH_SIZE must be positive, got %d", c.TriageBatch)
	}
	return nil
}
