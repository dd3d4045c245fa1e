package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: test-secret
database:
  host: localhost
  port: 5432
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 6, cfg.Invite.CodeLength)
	assert.Equal(t, 8, cfg.Invite.FallbackLength)
	assert.Equal(t, 10, cfg.Invite.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.AWS.PresignTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
redis:
  cache_ttl: 10m
`)
	t.Setenv("PAIRDATE_JWT_SECRET", "from-env")
	t.Setenv("PAIRDATE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	t.Setenv("PAIRDATE_JWT_SECRET", "env-only")
	t.Setenv("PAIRDATE_DATABASE_DRIVER", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestValidateRejectsIncompleteAPNs(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s
apns:
  enabled: true
  key_id: ABC
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "pairdate", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pairdate sslmode=disable", db.DSN())
}
