package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CARDBATCH_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Render.MaxDimension)
	assert.False(t, cfg.Render.BlankMissing)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cardbatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  fetch_timeout: 3s
render:
  max_dimension: 800
  blank_missing: true
logging:
  level: debug
  format: json
`), 0o644))
	t.Setenv("PORT", "9100")
	t.Setenv("CARDBATCH_SESSION_TTL", "15m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.FetchTimeout)
	assert.Equal(t, 800, cfg.Render.MaxDimension)
	assert.True(t, cfg.Render.BlankMissing)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.NotNil(t, cfg.Logging.NewLogger())
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("PORT", "")
	t.Setenv("CARDBATCH_MAX_DIMENSION", "0")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("CARDBATCH_MAX_DIMENSION", "")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = Load("")
	assert.Error(t, err)
}
