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

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StructurePolicy.Interval)
	assert.Equal(t, 180, cfg.Pipeline.StructurePolicy.MaxAttempts)
	assert.Equal(t, 60, cfg.Pipeline.DesignPolicy.MaxAttempts)
	assert.Equal(t, 5.0, cfg.Pipeline.InterfaceCutoff)
	assert.NotEmpty(t, cfg.Prediction.Endpoints.AlphaFold2)
	assert.False(t, cfg.IsDev())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
environment: dev
dev_mode_bypass: true
db:
  driver: sqlite
  path: /tmp/sessions.db
pipeline:
  parallelism: 4
  structure_policy:
    interval: 2s
    max_attempts: 30
auth:
  okta_domain: https://example.okta.com/oauth2/default/
`)
	t.Setenv("BINDERFLOW_LOG_LEVEL", "debug")
	t.Setenv("NGC_API_KEY", "nvapi-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.DevModeBypass)
	assert.Equal(t, "/tmp/sessions.db", cfg.DSN())
	assert.Equal(t, 4, cfg.Pipeline.Parallelism)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.StructurePolicy.Interval)
	assert.Equal(t, 30, cfg.Pipeline.StructurePolicy.MaxAttempts)
	assert.Equal(t, 60, cfg.Pipeline.DesignPolicy.MaxAttempts)
	assert.Equal(t, "https://example.okta.com/oauth2/default", cfg.Auth.OktaDomain)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "nvapi-test", cfg.Prediction.APIKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "db:\n  driver: oracle\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")

	_, err = LoadConfig(writeConfig(t, "pipeline:\n  parallelism: 0\n"))
	require.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	var cfg Config
	cfg.DB.Driver = "postgres"
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.User = "u"
	cfg.DB.Password = "p"
	cfg.DB.Name = "n"
	cfg.DB.SSLMode = "require"
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", cfg.DSN())
}
