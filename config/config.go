package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseDriver   string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	JWTSecret        []byte
	SessionTTL       time.Duration
	LogMode          string
	CORSOrigins      []string
	SignInRatePerMin int
	SecureCookie     bool
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := Config{
		Port:             getenv("PORT", ":8080"),
		DatabaseDriver:   getenv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getenv("REDIS_HOST", "localhost") + ":" + getenv("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		LogMode:          getenv("LOG_MODE", "development"),
		CORSOrigins:      splitList(getenv("CORS_ORIGINS", "*")),
		SessionTTL:       30 * time.Minute,
		SignInRatePerMin: 10,
	}
	if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.DatabaseURL == "" {
		switch cfg.DatabaseDriver {
		case "postgres":
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
				os.Getenv("DATABASE_USER"), os.Getenv("DATABASE_PASSWORD"),
				getenv("DATABASE_HOST", "localhost"), getenv("DATABASE_PORT", "5432"),
				os.Getenv("DATABASE_NAME"))
		case "sqlite3":
			cfg.DatabaseURL = "file:storefront.db?_foreign_keys=on"
		default:
			return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
		}
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("SIGNIN_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("SIGNIN_RATE_PER_MIN must be a positive integer")
		}
		cfg.SignInRatePerMin = n
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		cfg.SecureCookie = b
	}
	if len(cfg.JWTSecret) == 0 {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
