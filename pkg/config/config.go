package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config directories, env prefixes and default file names
const AppName = "imgharvest"

// Config holds all configuration options for imgharvest
type Config struct {
	// Page loading
	Page PageConfig `yaml:"page" json:"page"`

	// Candidate download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Where the archive is written
	Output OutputConfig `yaml:"output" json:"output"`

	// Rate limiting for image requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for the document load
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PageConfig holds document loading configuration
type PageConfig struct {
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	FetchStylesheets bool          `yaml:"fetch_stylesheets" json:"fetch_stylesheets"`
	MaxStylesheets   int           `yaml:"max_stylesheets" json:"max_stylesheets"`
	MaxBodySize      int64         `yaml:"max_body_size" json:"max_body_size"`
}

// DownloadConfig holds per-candidate download configuration
type DownloadConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	EnforceCORS bool          `yaml:"enforce_cors" json:"enforce_cors"`
	MaxFileSize int64         `yaml:"max_file_size" json:"max_file_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	SaveAs    bool   `yaml:"save_as" json:"save_as"`
}

// RateLimitConfig holds rate limiting configuration. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`

	// Burst is how many requests a token bucket lets through back to back
	Burst int `yaml:"burst" json:"burst"`

	// Strategy is "token_bucket" or "sliding_window"
	Strategy string `yaml:"strategy" json:"strategy"`
}

const (
	RateLimitTokenBucket   = "token_bucket"
	RateLimitSlidingWindow = "sliding_window"
)

// RetryConfig holds the document load retry configuration
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultUserAgent is sent on every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{
			UserAgent:        DefaultUserAgent,
			Timeout:          30 * time.Second,
			FetchStylesheets: true,
			MaxStylesheets:   20,
			MaxBodySize:      10 << 20,
		},
		Download: DownloadConfig{
			Concurrency: 1,
			Timeout:     30 * time.Second,
			EnforceCORS: true,
			MaxFileSize: 0, // 0 means no limit
		},
		Output: OutputConfig{
			Directory: ".",
			SaveAs:    false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             4,
			Strategy:          RateLimitTokenBucket,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if ua := os.Getenv("IMGHARVEST_USER_AGENT"); ua != "" {
		c.Page.UserAgent = ua
	}
	if v := os.Getenv("IMGHARVEST_FETCH_STYLESHEETS"); v != "" {
		c.Page.FetchStylesheets = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IMGHARVEST_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_CONCURRENCY: %w", err))
		} else {
			c.Download.Concurrency = n
		}
	}
	if v := os.Getenv("IMGHARVEST_DOWNLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_DOWNLOAD_TIMEOUT: %w", err))
		} else {
			c.Download.Timeout = d
		}
	}
	if v := os.Getenv("IMGHARVEST_ENFORCE_CORS"); v != "" {
		c.Download.EnforceCORS = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IMGHARVEST_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if dir := os.Getenv("IMGHARVEST_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if v := os.Getenv("IMGHARVEST_SAVE_AS"); v != "" {
		c.Output.SaveAs = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IMGHARVEST_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if level := os.Getenv("IMGHARVEST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("IMGHARVEST_LOG_FILE"); file != "" {
		c.Logging.File = file
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// ConfigDir returns the XDG config directory for imgharvest
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"." + AppName + ".yaml",
		"." + AppName + ".yml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.yml"),
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, "."+AppName+".yaml"),
			filepath.Join(home, "."+AppName+".yml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Page.Timeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}
	if c.Page.MaxStylesheets < 0 {
		errs = append(errs, errors.New("max stylesheets cannot be negative"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency should not exceed 16"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit burst cannot be negative"))
	}
	switch c.RateLimit.Strategy {
	case "", RateLimitTokenBucket, RateLimitSlidingWindow:
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if saveAs, ok := flags["save-as"].(bool); ok {
		c.Output.SaveAs = saveAs
	}
	if n, ok := flags["concurrency"].(int); ok && n > 0 {
		c.Download.Concurrency = n
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if enforce, ok := flags["enforce-cors"].(bool); ok {
		c.Download.EnforceCORS = enforce
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if fetch, ok := flags["fetch-stylesheets"].(bool); ok {
		c.Page.FetchStylesheets = fetch
	}
	if ua, ok := flags["user-agent"].(string); ok && ua != "" {
		c.Page.UserAgent = ua
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(ConfigDir(), ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
