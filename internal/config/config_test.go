package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, "sql", cfg.RevocationStore)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 8, cfg.SecretMinLength)
				assert.Equal(t, uint32(65536), cfg.Argon2Memory)
				assert.Equal(t, uint32(3), cfg.Argon2Time)
				assert.Equal(t, uint8(4), cfg.Argon2Parallelism)
				assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
				assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
				assert.Equal(t, 5, cfg.LockoutMaxAttempts)
				assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
			},
		},
		{
			name: "load custom token configuration",
			envVars: map[string]string{
				"ACCESS_TOKEN_TTL_MINUTES": "5",
				"REFRESH_TOKEN_TTL_HOURS":  "24",
				"TOKEN_ISSUER":             "issuer-test",
				"TOKEN_AUDIENCE":           "audience-test",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
				assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
				assert.Equal(t, "issuer-test", cfg.TokenIssuer)
				assert.Equal(t, "audience-test", cfg.TokenAudience)
			},
		},
		{
			name: "load custom lockout configuration",
			envVars: map[string]string{
				"LOCKOUT_MAX_ATTEMPTS":     "3",
				"LOCKOUT_DURATION_MINUTES": "60",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.LockoutMaxAttempts)
				assert.Equal(t, 60*time.Minute, cfg.LockoutDuration)
			},
		},
		{
			name: "load redis revocation store configuration",
			envVars: map[string]string{
				"REVOCATION_STORE": "redis",
				"REDIS_URL":        "redis://cache:6379/1",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "redis", cfg.RevocationStore)
				assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"warn", "release"},
		{"error", "release"},
		{"unknown", "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetGinMode())
		})
	}
}

func TestMain(m *testing.M) {
	// Isolate from a developer's .env file
	os.Clearenv()
	os.Exit(m.Run())
}
