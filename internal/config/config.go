package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	CAA         CAAConfig         `yaml:"caa"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	UserAgent   UserAgentConfig   `yaml:"user_agent"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CAAConfig holds Cover Art Archive client settings.
type CAAConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// MusicBrainzConfig holds settings for release lookups by name.
type MusicBrainzConfig struct {
	BaseURL  string `yaml:"base_url"`
	MinScore int    `yaml:"min_score"`
}

// UserAgentConfig holds the contact both services ask for in the User-Agent.
type UserAgentConfig struct {
	Contact string `yaml:"contact"`
}

// OutputConfig holds CLI output settings.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Output formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CAA: CAAConfig{
			BaseURL:           "https://coverartarchive.org",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 10,
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:  "https://musicbrainz.org/ws/2",
			MinScore: 95,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: FormatAuto,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("CA_CAA_URL"); v != "" {
		c.CAA.BaseURL = v
	}
	if v := os.Getenv("CA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CA_TIMEOUT: %w", err)
		}
		c.CAA.Timeout = d
	}
	if v := os.Getenv("CA_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CA_RPS: %w", err)
		}
		c.CAA.RequestsPerSecond = rps
	}
	if v := os.Getenv("CA_MB_URL"); v != "" {
		c.MusicBrainz.BaseURL = v
	}
	if v := os.Getenv("CA_CONTACT"); v != "" {
		c.UserAgent.Contact = v
	}
	if v := os.Getenv("CA_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("CA_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("CA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CA_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CA_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	return nil
}

func (c *Config) validate() error {
	if err := validateURL(c.CAA.BaseURL); err != nil {
		return fmt.Errorf("caa.base_url: %w", err)
	}
	if err := validateURL(c.MusicBrainz.BaseURL); err != nil {
		return fmt.Errorf("musicbrainz.base_url: %w", err)
	}
	if c.CAA.Timeout <= 0 {
		return fmt.Errorf("invalid caa.timeout: %s", c.CAA.Timeout)
	}
	if c.CAA.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid caa.requests_per_second: %g", c.CAA.RequestsPerSecond)
	}
	if c.MusicBrainz.MinScore < 0 || c.MusicBrainz.MinScore > 100 {
		return fmt.Errorf("invalid musicbrainz.min_score: %d", c.MusicBrainz.MinScore)
	}
	switch c.Output.Format {
	case FormatAuto, FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output.format: %q", c.Output.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
