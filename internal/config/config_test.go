package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liimonx/ispadmin/internal/config"
)

// clearEnv neutralizes every override so tests see only what they set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"ISPADMIN_CONFIG",
		"ISPADMIN_BASE_URL",
		"ISPADMIN_REQUEST_TIMEOUT",
		"ISPADMIN_PROFILE_DIR",
		"ISPADMIN_LOG_LEVEL",
	} {
		t.Setenv(envVar, "")
	}
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
base_url: https://isp.example.com/api
request_timeout: 5s
profile_dir: /var/lib/ispadmin
log:
  level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://isp.example.com/api", cfg.BaseURL)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	require.Equal(t, "/var/lib/ispadmin", cfg.ProfileDir)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, filepath.Join("/var/lib/ispadmin", "credentials.sealed"), cfg.CredentialPath())
}

func TestLoad_DefaultsFillUnsetFields(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "base_url: http://localhost:8000\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, "info", cfg.Log.Level)
	require.NotEmpty(t, cfg.ProfileDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
base_url: https://file.example.com
log:
  level: debug
`)
	t.Setenv("ISPADMIN_BASE_URL", "https://env.example.com")
	t.Setenv("ISPADMIN_REQUEST_TIMEOUT", "45s")
	t.Setenv("ISPADMIN_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.BaseURL)
	require.Equal(t, 45*time.Second, cfg.RequestTimeout)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvConfigPath(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "base_url: https://isp.example.com\n")
	t.Setenv(config.ConfigPathVar, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "https://isp.example.com", cfg.BaseURL)
}

func TestLoad_EnvConfigPathMustExist(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.ConfigPathVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "log:\n  level: debug\n")

	_, err := config.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "base_url")
}

func TestLoad_RejectsRelativeBaseURL(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "base_url: backend.local/api\n")

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
base_url: https://isp.example.com
request_timeout: -5s
`)

	_, err := config.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "request_timeout")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ISPADMIN_TEST_VALUE", "set")
	require.Equal(t, "set", config.GetEnv("ISPADMIN_TEST_VALUE", "fallback"))

	t.Setenv("ISPADMIN_TEST_VALUE", "")
	require.Equal(t, "fallback", config.GetEnv("ISPADMIN_TEST_VALUE", "fallback"))
}
