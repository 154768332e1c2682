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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.Equal(t, 45, cfg.Engines.TimeoutSeconds)
	assert.Equal(t, 0.5, cfg.Engines.LowConfidenceThreshold)
	assert.Equal(t, 12, cfg.Pipeline.AbnormalPenalty)
	assert.Equal(t, 25, cfg.Pipeline.CriticalPenalty)
	assert.Equal(t, 85, cfg.Pipeline.LowRiskFloor)
	assert.Equal(t, 1024, cfg.Cache.MaxEntries)
	assert.Equal(t, 60, cfg.Cache.TTLMinutes)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 8088
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: mediq
  password: secret
  name: mediq
  sslMode: require
engines:
  primary:
    name: gpt
    baseURL: https://llm.internal/v1
    model: gpt-4o-mini
    apiKeyEnv: PRIMARY_KEY
  lowConfidenceThreshold: 0.6
cache:
  maxEntries: 128
  ttlMinutes: 15
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 0.6, cfg.Engines.LowConfidenceThreshold)
	assert.Equal(t, "gpt-4o-mini", cfg.Engines.Primary.Model)
	assert.Equal(t, 128, cfg.Cache.MaxEntries)

	assert.Equal(t,
		"host=db.internal port=5432 user=mediq password=secret dbname=mediq sslmode=require",
		cfg.PostgresDSN())
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Database.User = "root"
	cfg.Database.Password = "pw"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 3306
	cfg.Database.Name = "mediq"
	assert.Equal(t,
		"root:pw@tcp(localhost:3306)/mediq?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.MySQLDSN())
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_ENGINE_KEY", "sk-test")
	e := EngineConfig{APIKeyEnv: "TEST_ENGINE_KEY"}
	assert.Equal(t, "sk-test", e.APIKey())
	assert.Empty(t, EngineConfig{}.APIKey())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
