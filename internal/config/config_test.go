package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-complaints/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("COMPLAINT_CATEGORIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "2000", cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTLs.Officer)
	assert.Equal(t, scoring.DefaultCategories, cfg.Categories)
	assert.Equal(t, cfg.AnalysisTimeout, cfg.AI.Timeout)
	assert.False(t, cfg.UseMinio())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "https://city.gov, https://ops.city.gov ,")
	t.Setenv("OFFICER_TOKEN_TTL", "2h")
	t.Setenv("DISABLE_AI", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("COMPLAINT_CATEGORIES", "Garbage,Noise")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"https://city.gov", "https://ops.city.gov"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTLs.Officer)
	assert.True(t, cfg.DisableAI)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, []string{"Garbage", "Noise"}, cfg.Categories)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.UseMinio())
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ANALYSIS_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg := &Config{JWTSecret: "x", DBPath: "db", MaxPhotoBytes: 1, AnalysisTimeout: time.Second, Categories: []string{"Garbage"}}
	require.NoError(t, cfg.Validate())
	cfg.Minio.Endpoint = "localhost:9000"
	assert.Error(t, cfg.Validate())
}
