package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://faces@localhost/faces")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("CATALOG_TTL", "")
	t.Setenv("STATS_INTERVAL", "")
	t.Setenv("IMAGE_DIR", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "images/holdout_faces/cropped", cfg.ImageDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.CatalogTTL)
	assert.Empty(t, cfg.AdminIDs)
	assert.Error(t, cfg.RequireBot())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Values(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "10, 20,30")
	t.Setenv("CATALOG_TTL", "30s")
	t.Setenv("STATS_INTERVAL", "5m")
	t.Setenv("DASHBOARD_PASSWORD", "s3cret")
	t.Setenv("BACKUPCTL_URL", "http://pgbackup:8081")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireBot())
	assert.Equal(t, []int64{10, 20, 30}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(40))
	assert.Equal(t, 30*time.Second, cfg.CatalogTTL)
	assert.Equal(t, 5*time.Minute, cfg.StatsInterval)
	assert.Equal(t, "s3cret", cfg.DashboardPassword)
	assert.Equal(t, "http://pgbackup:8081", cfg.BackupURL)
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")

	t.Run("admin_ids", func(t *testing.T) {
		t.Setenv("ADMIN_IDS", "10,abc")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("ttl", func(t *testing.T) {
		t.Setenv("CATALOG_TTL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("negative_interval", func(t *testing.T) {
		t.Setenv("STATS_INTERVAL", "-1s")
		_, err := Load()
		assert.Error(t, err)
	})
}
