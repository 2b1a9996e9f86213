package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, int64(2<<20), cfg.Documents.DefaultMaxBytes)
	assert.Equal(t, "CAP2025", cfg.Application.IDPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.AuthRequests)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADMISSION_SERVER_ADDR", ":9090")
	t.Setenv("ADMISSION_OTP_TTL", "90s")
	t.Setenv("ADMISSION_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 90*time.Second, cfg.OTP.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("documents:\n  default_max_bytes: 1024\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), cfg.Documents.DefaultMaxBytes)
}

func TestValidateRejectsDevSettingsInProduction(t *testing.T) {
	t.Setenv("ADMISSION_ENVIRONMENT", "production")
	t.Setenv("ADMISSION_OTP_FIXED_CODE", "123456")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otp.fixed_code")
	assert.Contains(t, err.Error(), "jwt_signing_key")
}

func TestValidateIDPrefix(t *testing.T) {
	t.Setenv("ADMISSION_APPLICATION_ID_PREFIX", "CAP25")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_prefix")
}
