// Package config loads console configuration in three layers: compiled
// defaults, then an optional YAML file, then ISPADMIN_* environment
// overrides. Later layers win.
package config

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathVar names the config file when no --config flag is given.
	ConfigPathVar = "ISPADMIN_CONFIG"

	baseURLVar        = "ISPADMIN_BASE_URL"
	requestTimeoutVar = "ISPADMIN_REQUEST_TIMEOUT"
	profileDirVar     = "ISPADMIN_PROFILE_DIR"
	logLevelVar       = "ISPADMIN_LOG_LEVEL"

	configFileName = "config.yaml"
)

type Config struct {
	// BaseURL is the backend root including any path prefix, for example
	// "https://isp.example.com/api". Required.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds each API request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ProfileDir holds the sealed credential document and, unless
	// overridden, the config file itself.
	ProfileDir string `yaml:"profile_dir"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// CredentialPath is where the sealed credential document lives. Its sealing
// key sits next to it.
func (c Config) CredentialPath() string {
	return filepath.Join(c.ProfileDir, "credentials.sealed")
}

func defaults() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		ProfileDir:     defaultProfileDir(),
		Log:            LogConfig{Level: "info"},
	}
}

func defaultProfileDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ispadmin")
	}
	return ".ispadmin"
}

// Load builds the configuration. An explicit path (--config) must exist; the
// ISPADMIN_CONFIG or default profile-dir file may be absent, in which case
// defaults plus environment carry the whole configuration.
func Load(explicitPath string) (Config, error) {
	cfg := defaults()

	path, required := configPath(explicitPath, cfg.ProfileDir)
	if err := loadFile(path, required, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "[Load] loadFile")
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, errors.Wrap(err, "[Load] cfg.validate")
	}
	return cfg, nil
}

func configPath(explicitPath, profileDir string) (path string, required bool) {
	if explicitPath != "" {
		return explicitPath, true
	}
	if envPath := GetEnv(ConfigPathVar, ""); envPath != "" {
		return envPath, true
	}
	return filepath.Join(profileDir, configFileName), false
}

func loadFile(path string, required bool, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, "os.ReadFile")
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return errors.Wrapf(err, "yaml.Unmarshal %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.BaseURL = GetEnv(baseURLVar, cfg.BaseURL)
	cfg.ProfileDir = GetEnv(profileDirVar, cfg.ProfileDir)
	cfg.Log.Level = GetEnv(logLevelVar, cfg.Log.Level)

	if raw := GetEnv(requestTimeoutVar, ""); raw != "" {
		if timeout, err := time.ParseDuration(raw); err == nil {
			cfg.RequestTimeout = timeout
		}
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.Errorf("base_url is required (set it in the config file or %s)", baseURLVar)
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "url.Parse base_url")
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.ProfileDir == "" {
		return errors.New("profile_dir must not be empty")
	}
	return nil
}

// GetEnv returns the variable's value, or defaultValue when it is unset or
// empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
