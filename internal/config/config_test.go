package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 24, cfg.Cases.CooldownHours)
	assert.Equal(t, 24*time.Hour, cfg.Cases.CooldownWindow())
	assert.Equal(t, 50, cfg.Cases.HistoryLimit)
	assert.Equal(t, 32, cfg.GameServer.MaxPlayers)
	assert.False(t, cfg.GameServer.Enabled())
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, time.Minute, cfg.Redis.CatalogTTL)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  host: db.internal
  name: site
gameserver:
  host: game.internal
  name: cs16
cases:
  cooldown_hours: 12
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("HTTP_ADMIN_TOKEN", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.HTTP.AdminToken)
	assert.Equal(t, 12*time.Hour, cfg.Cases.CooldownWindow())
	assert.True(t, cfg.GameServer.Enabled())
	assert.Equal(t, "postgres://dashboard:@db.internal:6543/site?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, ":@tcp(game.internal:3306)/cs16?parseTime=true&charset=utf8mb4", cfg.GameServer.DSN())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("CASES_HISTORY_LIMIT", "500")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestConfig_IsAdmin(t *testing.T) {
	cfg := &Config{Admin: AdminConfig{IDs: []int64{42, 7}}}

	assert.True(t, cfg.IsAdmin(42))
	assert.True(t, cfg.IsAdmin(7))
	assert.False(t, cfg.IsAdmin(1))
}
