package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
jwt_secret: from-file
teams: [A1, A2]
goals:
  capina_per_day: 2000
geocoding:
  reverse_timeout: 5s
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("META_ROCAGEM", "1200")
	t.Setenv("ADMIN_FUNCTIONS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, []string{"A1", "A2"}, cfg.Teams)
	assert.Equal(t, 2000.0, cfg.Goals.CapinaPerDay)
	assert.Equal(t, 1200.0, cfg.Goals.RocagemPerDay)
	assert.Equal(t, 5*time.Second, cfg.Geocoding.ReverseTimeout)
	assert.Equal(t, 25*time.Second, cfg.Geocoding.OverpassTimeout)
	assert.True(t, cfg.AdminFunctionsEnabled)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultGoals(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1950.0, cfg.Goals.CapinaPerDay)
	assert.Equal(t, 1000.0, cfg.Goals.RocagemPerDay)
	assert.False(t, cfg.S3.Enabled())
}
