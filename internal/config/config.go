package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/notify"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	DSN         string
	JWTSecret   string
	CORSOrigins []string
	LogLevel    slog.Level

	Pricing     pricing.Settings
	CatalogFile string
	CatalogTTL  time.Duration

	SMTP        notify.SMTPConfig
	QuoteNodeID int64
}

// Load reads configs/.env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Info("No configs/.env file found, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		CatalogFile: getEnv("CATALOG_FILE", "configs/catalog.yaml"),
		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "sales@jthltd.co.uk"),
		},
	}

	cfg.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "jth"),
		getEnv("DB_SSLMODE", "disable"),
	)

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q", cfg.Port)
	}

	var err error
	if cfg.Pricing.VATRate, err = getDecimal("VAT_RATE"); err != nil {
		return nil, err
	}
	if cfg.Pricing.VATRate.IsNegative() || cfg.Pricing.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("VAT_RATE %s outside [0,1]", cfg.Pricing.VATRate)
	}
	if cfg.Pricing.APR, err = getDecimal("FINANCE_APR"); err != nil {
		return nil, err
	}
	if cfg.Pricing.APR.IsNegative() {
		return nil, fmt.Errorf("FINANCE_APR %s is negative", cfg.Pricing.APR)
	}

	if cfg.CatalogTTL, err = time.ParseDuration(getEnv("CATALOG_TTL", "1m")); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_TTL: %w", err)
	}
	if cfg.SMTP.Port, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.QuoteNodeID, err = strconv.ParseInt(getEnv("QUOTE_NODE_ID", "1"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_NODE_ID: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getDecimal returns zero when key is unset so that the pricing defaults apply.
func getDecimal(key string) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
