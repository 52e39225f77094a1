package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTExpiry time.Duration

	MinBet   decimal.Decimal
	MaxBet   decimal.Decimal
	RoundTTL time.Duration

	// SeedRevealDelay is the minimum time a retired server seed stays hidden.
	SeedRevealDelay time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTExpiry: 24 * time.Hour,
		MinBet:    decimal.RequireFromString("0.10"),
		MaxBet:    decimal.RequireFromString("1000"),
		RoundTTL:  30 * time.Minute,

		SeedRevealDelay: time.Minute,
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if v := os.Getenv("MIN_BET"); v != "" {
		if cfg.MinBet, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid MIN_BET: %w", err)
		}
	}
	if v := os.Getenv("MAX_BET"); v != "" {
		if cfg.MaxBet, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid MAX_BET: %w", err)
		}
	}
	if v := os.Getenv("ROUND_TTL"); v != "" {
		if cfg.RoundTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid ROUND_TTL: %w", err)
		}
	}
	if v := os.Getenv("SEED_REVEAL_DELAY"); v != "" {
		if cfg.SeedRevealDelay, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid SEED_REVEAL_DELAY: %w", err)
		}
	}
	if v := os.Getenv("JWT_EXPIRY"); v != "" {
		if cfg.JWTExpiry, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret"
	}
	if !cfg.MinBet.IsPositive() || cfg.MaxBet.LessThan(cfg.MinBet) {
		return nil, fmt.Errorf("invalid bet limits: min %s max %s", cfg.MinBet, cfg.MaxBet)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
