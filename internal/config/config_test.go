package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
database:
  driver: memory
jwt:
  secret: file-secret
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "120h", cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, "1h", cfg.PasswordReset.CodeTTL)
	assert.Equal(t, MailDriverLog, cfg.Mail.Driver)
	assert.Equal(t, EventsDriverGoChannel, cfg.Events.Driver)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("RATE_LIMIT_RPM", "5")
	t.Setenv("DB_SEED_DEMO_DATA", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Database.SeedDemoData)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "database:\n  driver: memory\n"},
		{name: "unknown driver", body: "database:\n  driver: sqlite\njwt:\n  secret: s\n"},
		{name: "bad expiration", body: "database:\n  driver: memory\njwt:\n  secret: s\n  access_token_expiration: soon\n"},
		{name: "sendgrid without key", body: "database:\n  driver: memory\njwt:\n  secret: s\nmail:\n  driver: sendgrid\n"},
		{name: "kafka without brokers", body: "database:\n  driver: memory\njwt:\n  secret: s\nevents:\n  driver: kafka\n"},
		{name: "bad trusted proxy", body: "server:\n  trusted_proxies: lb.internal\ndatabase:\n  driver: memory\njwt:\n  secret: s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Lists(t *testing.T) {
	cfg := &Config{}
	cfg.Events.KafkaBrokers = "a:9092, b:9092,,"
	cfg.Server.AllowedOrigins = "http://localhost:3000"

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins())
	assert.Empty(t, cfg.TrustedProxies())

	cfg.Server.TrustedProxies = "10.0.0.0/8, 192.168.1.5"
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.TrustedProxies())
}

func TestLoadConfig_BadEnvValue(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: memory\njwt:\n  secret: s\n")
	t.Setenv("RATE_LIMIT_RPM", "lots")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPM")
}
