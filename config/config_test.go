package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_Embedded(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "Production")
	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("ALLOW_ADMIN_DELETE_ALL", "true")

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Mode)
	assert.Equal(t, "key-from-env", cfg.Gemini.APIKey)
	assert.True(t, cfg.Admin.AllowDeleteAll)
	assert.Equal(t, "3000", cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionTTL)
	assert.Equal(t, int64(10<<20), cfg.Narratives.MaxUploadBytes)
	assert.Equal(t, 3, cfg.Narratives.RefreshHour)
	assert.Len(t, cfg.CORS.AllowedOrigins, 2)
}

func TestConfig_Location(t *testing.T) {
	var cfg Config
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Places.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}
