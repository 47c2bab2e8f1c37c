package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab-accession-backend/internal/config"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("LAB_API_BASE_URL", "https://lab.example.com/api")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://lab.example.com/api", cfg.LabAPIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.LabAPITimeout)
	assert.Equal(t, 3, cfg.SampleMaxRetries)
	assert.Equal(t, 2, cfg.BatchMaxRetries)
	assert.Equal(t, time.Second, cfg.RetryInitialDelay)
	assert.Equal(t, 2.0, cfg.RetryBackoffMultiplier)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "accession-manifests", cfg.SupabaseStorageBucket)
	assert.Equal(t, 12*time.Hour, cfg.WorkflowTTL)
	assert.False(t, cfg.SupabaseEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RETRY_INITIAL_DELAY", "250")
	t.Setenv("LAB_API_TIMEOUT", "3s")
	t.Setenv("BATCH_MAX_RETRIES", "4")
	t.Setenv("LAB_API_RATE_LIMIT", "2.5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay)
	assert.Equal(t, 3*time.Second, cfg.LabAPITimeout)
	assert.Equal(t, 4, cfg.BatchMaxRetries)
	assert.Equal(t, 2.5, cfg.LabAPIRateLimit)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("LAB_API_BASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LAB_API_BASE_URL is required")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SAMPLE_MAX_RETRIES", "three")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SampleMaxRetries")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("WORKFLOW_TTL", "forever")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkflowTTL")
}

func TestValidateServer(t *testing.T) {
	cfg := &config.Config{}
	assert.Error(t, cfg.ValidateServer())

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.ValidateServer())

	cfg.SupabaseURL = "https://project.supabase.co"
	assert.Error(t, cfg.ValidateServer())
}
