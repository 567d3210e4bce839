package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the config reads
const EnvPrefix = "WALLDO_"

// Config holds all configuration options for walldo
type Config struct {
	// Gallery site settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Download defaults
	Download DownloadConfig `yaml:"download" json:"download"`

	// Client-side throttling of image requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds gallery-specific configuration
type SiteConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds the defaults for a download run
type DownloadConfig struct {
	NumImages  int           `yaml:"num_images" json:"num_images"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute of zero disables throttling
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	Strategy          string `yaml:"strategy" json:"strategy"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory        string `yaml:"base_directory" json:"base_directory"`
	CreateKeywordFolders bool   `yaml:"create_keyword_folders" json:"create_keyword_folders"`
	ExportManifest       bool   `yaml:"export_manifest" json:"export_manifest"`
}

// MetricsConfig holds the Prometheus exporter configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Addr      string `yaml:"addr" json:"addr"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:   "https://wall.alphacoders.com",
			UserAgent: "Mozilla/5.0 (Windows NT 6.1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/72.0.3626.28 Safari/537.36",
		},
		Download: DownloadConfig{
			NumImages:  30,
			MaxRetries: 5,
			BatchSize:  5,
			Timeout:    30 * time.Second,
			CacheSize:  4096,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Strategy:          "token_bucket",
		},
		Output: OutputConfig{
			BaseDirectory:        "./wallpapers",
			CreateKeywordFolders: true,
			ExportManifest:       false,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Addr:      ":9090",
			Namespace: "walldo",
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from WALLDO_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}
	boolean := func(name string, dst *bool) {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}

	// Site
	str("BASE_URL", &c.Site.BaseURL)
	str("USER_AGENT", &c.Site.UserAgent)

	// Download
	integer("NUM_IMAGES", &c.Download.NumImages)
	integer("MAX_RETRIES", &c.Download.MaxRetries)
	integer("BATCH_SIZE", &c.Download.BatchSize)
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}

	// Rate limiting
	integer("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)

	// Output
	str("OUTPUT_DIR", &c.Output.BaseDirectory)

	// Metrics
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_ADDR", &c.Metrics.Addr)

	// Notifications
	boolean("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)

	// Logging
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
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

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "walldo", "config.yaml")
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".walldo.yaml",
		".walldo.yml",
		DefaultPath(),
		filepath.Join(os.Getenv("HOME"), ".config", "walldo", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".walldo.yaml"),
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

	// Validate site
	if u, err := url.Parse(c.Site.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("site base URL must be an absolute http(s) URL: %q", c.Site.BaseURL))
	}
	if c.Site.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	// Validate download settings
	if c.Download.NumImages <= 0 {
		errs = append(errs, errors.New("number of images must be positive"))
	}
	if c.Download.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.Download.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.CacheSize < 0 {
		errs = append(errs, errors.New("cache size cannot be negative"))
	}

	// Validate rate limiting
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	validStrategies := map[string]bool{
		"": true, "token_bucket": true, "sliding_window": true,
	}
	if !validStrategies[c.RateLimit.Strategy] {
		errs = append(errs, fmt.Errorf("invalid rate limit strategy: %s", c.RateLimit.Strategy))
	}

	// Validate output settings
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	// Validate metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	// Validate notification type
	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
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
// Zero values are ignored so unset flags keep lower-precedence values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if num, ok := flags["num"].(int); ok && num != 0 {
		c.Download.NumImages = num
	}
	if retries, ok := flags["retries"].(int); ok && retries != 0 {
		c.Download.MaxRetries = retries
	}
	if batch, ok := flags["batch"].(int); ok && batch != 0 {
		c.Download.BatchSize = batch
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout != 0 {
		c.Download.Timeout = timeout
	}
	if rpm, ok := flags["rate"].(int); ok && rpm != 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if metricsAddr, ok := flags["metrics-addr"].(string); ok && metricsAddr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = metricsAddr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".walldo.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
