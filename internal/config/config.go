// Package config loads server settings from the environment. An optional .env
// file in the working directory is read first; real environment variables
// take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/ai"
	"civic-complaints/internal/auth"
	"civic-complaints/internal/photos"
	"civic-complaints/internal/scoring"
)

// Config holds all server configuration.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string
	Debug          bool
	LogLevel       logrus.Level

	JWTSecret string
	TokenTTLs auth.TTLs

	AI              ai.Config
	DisableAI       bool
	AnalysisTimeout time.Duration
	AIRetries       int

	PhotoDir      string
	MaxPhotoBytes int64
	Minio         photos.MinioConfig

	RateLimitRPS   float64
	RateLimitBurst int

	PriorityRulesPath string
	Categories        []string
}

// Load reads configuration from .env and the environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("ignoring unreadable .env file")
	}

	level, err := logrus.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:   getEnvOrDefault("PORT", "2000"),
		DBPath: getEnvOrDefault("CIVIC_DB_PATH", "data/civic.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
		}),
		Debug:    getEnvBool("DEBUG", false),
		LogLevel: level,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTLs: auth.TTLs{
			Citizen: getEnvDuration("CITIZEN_TOKEN_TTL", 24*time.Hour),
			Officer: getEnvDuration("OFFICER_TOKEN_TTL", 8*time.Hour),
			Admin:   getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		},

		AI: ai.Config{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       os.Getenv("OPENAI_MODEL"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 0),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0),
		},
		DisableAI:       getEnvBool("DISABLE_AI", false),
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 45*time.Second),
		AIRetries:       getEnvInt("OPENAI_RETRIES", 2),

		PhotoDir:      getEnvOrDefault("PHOTO_DIR", "data/photos"),
		MaxPhotoBytes: int64(getEnvInt("MAX_PHOTO_BYTES", 5<<20)),
		Minio: photos.MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnvOrDefault("MINIO_BUCKET", "complaint-photos"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		PriorityRulesPath: os.Getenv("PRIORITY_RULES_PATH"),
		Categories:        getEnvList("COMPLAINT_CATEGORIES", scoring.DefaultCategories),
	}
	cfg.AI.Timeout = cfg.AnalysisTimeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "CIVIC_DB_PATH must not be empty")
	}
	if c.MaxPhotoBytes <= 0 {
		problems = append(problems, "MAX_PHOTO_BYTES must be positive")
	}
	if c.AnalysisTimeout <= 0 {
		problems = append(problems, "ANALYSIS_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		problems = append(problems, "rate limits must not be negative")
	}
	if len(c.Categories) == 0 {
		problems = append(problems, "COMPLAINT_CATEGORIES must list at least one category")
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		problems = append(problems, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UseMinio reports whether photos go to object storage instead of disk.
func (c *Config) UseMinio() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != ""
}

func getEnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
		logrus.WithField("key", key).Warnf("invalid integer %q, using %d", value, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
		logrus.WithField("key", key).Warnf("invalid number %q, using %v", value, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.WithField("key", key).Warnf("invalid duration %q, using %s", value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
