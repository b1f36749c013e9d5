package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 80, cfg.Quality)
	assert.Equal(t, 1200, cfg.MaxWidth)
	assert.Equal(t, "images", cfg.Source)
	assert.Equal(t, "images/optimized", cfg.Output)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png"}, cfg.Formats)
	assert.Equal(t, CollisionFail, cfg.OnCollision)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	res, err := NewLoader().WithDotEnv(false).WithEnv(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Equal(t, DefaultConfig().Quality, res.Config.Quality)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimg.yaml")
	yml := `
source: photos
output: photos/web
quality: 70
max_width: 1600
formats: [JPG, png, .png]
file_timeout: 45s
on_collision: overwrite
placeholder:
  max_width: 24
log:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	res, err := NewLoader().
		WithDotEnv(false).
		WithFile(path).
		WithEnv(envMap(map[string]string{
			"OPTIMG_QUALITY":   "65",
			"OPTIMG_LOG_LEVEL": "warn",
		})).
		Load()
	require.NoError(t, err)
	require.NoError(t, res.Config.Validate())

	cfg := res.Config
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "photos", cfg.Source)
	assert.Equal(t, "photos/web", cfg.Output)
	assert.Equal(t, 65, cfg.Quality)
	assert.Equal(t, 1600, cfg.MaxWidth)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Formats)
	assert.Equal(t, 45*time.Second, cfg.FileTimeout)
	assert.Equal(t, CollisionOverwrite, cfg.OnCollision)
	assert.Equal(t, 24, cfg.Placeholder.MaxWidth)
	assert.Equal(t, 40, cfg.Placeholder.Quality)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().WithDotEnv(false).WithFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.Error(t, err)
}

func TestLoadRejectsBadEnvNumber(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := NewLoader().
		WithDotEnv(false).
		WithEnv(envMap(map[string]string{"OPTIMG_MAX_WIDTH": "wide"})).
		Load()
	require.ErrorContains(t, err, "OPTIMG_MAX_WIDTH")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality too high", func(c *Config) { c.Quality = 101 }},
		{"quality negative", func(c *Config) { c.Quality = -1 }},
		{"zero width", func(c *Config) { c.MaxWidth = 0 }},
		{"zero max pixels", func(c *Config) { c.MaxPixels = 0 }},
		{"no formats", func(c *Config) { c.Formats = nil }},
		{"empty source", func(c *Config) { c.Source = "" }},
		{"bad collision policy", func(c *Config) { c.OnCollision = "rename" }},
		{"bad ui", func(c *Config) { c.UI = "fancy" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative timeout", func(c *Config) { c.FileTimeout = -time.Second }},
		{"placeholder width", func(c *Config) { c.Placeholder.MaxWidth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNormalizeWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Normalize()
	assert.GreaterOrEqual(t, cfg.Workers, 1)
}
