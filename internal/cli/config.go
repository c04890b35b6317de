package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables. They override the config file.
const (
	envServerURL   = "POOL_SERVER_URL"
	envAPIKey      = "POOL_API_KEY"
	envDatabaseURL = "POOL_DATABASE_URL"
	envTimezone    = "POOL_TIMEZONE"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL   string `yaml:"server_url,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	Timezone    string `yaml:"timezone,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pool", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// loadEnvFile loads .env from the working directory if there is one.
// Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// setting returns the env var if set, otherwise the config file value.
// A config file that cannot be read or parsed is an error, so a broken file
// never silently selects a different backend.
func setting(env string, fromConfig func(CLIConfig) string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return fromConfig(cfg), nil
}

// getServerURL returns the REST backend URL, empty when none is configured.
func getServerURL() (string, error) {
	return setting(envServerURL, func(c CLIConfig) string { return c.ServerURL })
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() (string, error) {
	return setting(envAPIKey, func(c CLIConfig) string { return c.APIKey })
}

// getDatabaseURL returns the Postgres connection string, if any.
func getDatabaseURL() (string, error) {
	return setting(envDatabaseURL, func(c CLIConfig) string { return c.DatabaseURL })
}

// getLocation returns the time zone visit days are computed in, defaulting
// to the system zone.
func getLocation() (*time.Location, error) {
	name, err := setting(envTimezone, func(c CLIConfig) string { return c.Timezone })
	if err != nil {
		return nil, err
	}
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}
