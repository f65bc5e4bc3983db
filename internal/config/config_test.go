package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 20*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, "dynamodb", cfg.Store.Backend)
	assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_SecretsManagerSourcing(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_SECRET_FROM_SECRETS", "true")

	// The secret name is mandatory when sourcing from Secrets Manager
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_NAME")

	t.Setenv("JWT_SECRET_NAME", "prod/user-api/jwt")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.JWT.Secret)
	assert.Equal(t, "prod/user-api/jwt", cfg.JWT.SecretName)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad TTL", "JWT_TTL", "-5m"},
		{"bad backend", "STORE_BACKEND", "mongo"},
		{"bad port", "SERVER_PORT", "99999"},
		{"bad sample rate", "OBSERVABILITY_SAMPLE_RATE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
