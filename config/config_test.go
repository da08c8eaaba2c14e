package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadJSONThenEnvThenDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "from-file", "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "postgres", "DBName": "forum"},
		"redis": {"RedisHost": "cache"},
		"upload": {"MaxMB": 5}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example ,")
	applyEnvOverrides(&c)
	applyDefaults(&c)

	require.Equal(t, "9100", c.AppPort)
	require.Equal(t, "from-file", c.JWTSecret)
	require.Equal(t, []string{"https://b.example", "https://c.example"}, c.AllowedOrigins)
	require.Equal(t, "postgres", c.DBDriver)
	require.Equal(t, "5432", c.DBPort)
	require.Equal(t, "forum", c.DBName)
	require.Equal(t, "cache", c.RedisHost)
	require.Equal(t, 6379, c.RedisPort)
	require.Equal(t, 5, c.UploadMaxMB)
	require.Equal(t, 5, c.SignupMaxPerIPPerDay)
}

func TestLoadJSONRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	var c AppConfig
	require.Error(t, loadJSONConfig(path, &c))
	require.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "missing.json"), &c))
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		c := AppConfig{DBDriver: driver}
		applyDefaults(&c)
		d, err := dialectorFor(c)
		require.NoError(t, err)
		require.Equal(t, driver, d.Name())
	}

	_, err := dialectorFor(AppConfig{DBDriver: "oracle"})
	require.Error(t, err)
}
