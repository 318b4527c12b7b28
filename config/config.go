// Package config holds the indexer settings. Values come from defaults, an
// optional YAML file, the environment (including a .env file) and flags, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"repo-index/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUser   = "sportomax1"
	DefaultOutput = "master_index.html"
	DefaultAPIURL = "https://api.github.com/"
)

// Config represents the application configuration
type Config struct {
	User             string    `yaml:"user"`
	Output           string    `yaml:"output"`
	APIURL           string    `yaml:"api_url"`
	Fallback         string    `yaml:"fallback"`
	PerPage          int       `yaml:"per_page"`
	Progress         bool      `yaml:"progress"`
	ProgressBarStyle string    `yaml:"progress_bar_style"`
	MetricsFile      string    `yaml:"metrics_file,omitempty"`
	Log              LogConfig `yaml:"log"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		User:             DefaultUser,
		Output:           DefaultOutput,
		APIURL:           DefaultAPIURL,
		Fallback:         string(model.FallbackNow),
		PerPage:          100,
		Progress:         true,
		ProgressBarStyle: "█",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig returns the defaults overlaid with the YAML file at configPath.
// An empty configPath returns the defaults unchanged.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes config as YAML to configPath
func SaveConfig(configPath string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from REPO_INDEX_* variables looked up through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"REPO_INDEX_USER":         &c.User,
		"REPO_INDEX_OUTPUT":       &c.Output,
		"REPO_INDEX_API_URL":      &c.APIURL,
		"REPO_INDEX_FALLBACK":     &c.Fallback,
		"REPO_INDEX_METRICS_FILE": &c.MetricsFile,
		"REPO_INDEX_LOG_LEVEL":    &c.Log.Level,
		"REPO_INDEX_LOG_FORMAT":   &c.Log.Format,
	}
	for key, field := range strs {
		if v := getenv(key); v != "" {
			*field = v
		}
	}

	if v := getenv("REPO_INDEX_PER_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPO_INDEX_PER_PAGE: %w", err)
		}
		c.PerPage = n
	}
	if v := getenv("REPO_INDEX_PROGRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REPO_INDEX_PROGRESS: %w", err)
		}
		c.Progress = b
	}

	return nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.User == "" {
		return errors.New("user must not be empty")
	}
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		return fmt.Errorf("per_page must be between 1 and 100, got %d", c.PerPage)
	}
	if _, err := model.ParseFallback(c.Fallback); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// FallbackPolicy returns the parsed missing-commit policy. Call Validate first.
func (c Config) FallbackPolicy() model.FallbackPolicy {
	p, err := model.ParseFallback(c.Fallback)
	if err != nil {
		return model.FallbackNow
	}
	return p
}
