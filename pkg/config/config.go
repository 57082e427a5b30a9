package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as strings
// like "90s" or "20m". Bare numbers are interpreted as seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Config holds all configuration for the archiver.
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds account and session settings.
type InstagramConfig struct {
	Username    string `yaml:"username" json:"username"`
	SessionID   string `yaml:"session_id" json:"session_id"`
	SessionFile string `yaml:"session_file" json:"session_file"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds download behavior settings.
type DownloadConfig struct {
	Dest         string   `yaml:"dest" json:"dest"`
	FastUpdate   bool     `yaml:"fast_update" json:"fast_update"`
	WaitBetween  Duration `yaml:"wait_between" json:"wait_between"`
	Timeout      Duration `yaml:"timeout" json:"timeout"`
	SaveMetadata bool     `yaml:"save_metadata" json:"save_metadata"`
}

// RetryConfig holds the traversal retry settings.
type RetryConfig struct {
	// Schedule is the escalating wait applied between traversal attempts.
	// The last entry is reused once the schedule runs out.
	Schedule []Duration `yaml:"schedule" json:"schedule"`
	// ConnectionAttempts bounds low-level HTTP attempts per request.
	ConnectionAttempts int `yaml:"connection_attempts" json:"connection_attempts"`
}

// RateLimitConfig paces timeline page requests against the API.
type RateLimitConfig struct {
	// PageRequests is how many timeline pages may be fetched per period.
	PageRequests int `yaml:"page_requests" json:"page_requests"`
	// Period is the refill period for the page request budget.
	Period Duration `yaml:"period" json:"period"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults. The destination
// defaults to a folder named after the target profile, created at run time.
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Download: DownloadConfig{
			Dest:         "",
			FastUpdate:   false,
			WaitBetween:  Duration(5 * time.Second),
			Timeout:      Duration(30 * time.Second),
			SaveMetadata: true,
		},
		Retry: RetryConfig{
			Schedule: []Duration{
				Duration(60 * time.Second),
				Duration(120 * time.Second),
				Duration(300 * time.Second),
				Duration(600 * time.Second),
				Duration(1200 * time.Second),
			},
			ConnectionAttempts: 3,
		},
		RateLimit: RateLimitConfig{
			PageRequests: 12,
			Period:       Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv applies IGARCHIVE_* environment variables on top of the
// current values.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("IGARCHIVE_USERNAME"); v != "" {
		c.Instagram.Username = v
	}
	if v := os.Getenv("IGARCHIVE_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("IGARCHIVE_SESSION_FILE"); v != "" {
		c.Instagram.SessionFile = v
	}
	if v := os.Getenv("IGARCHIVE_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("IGARCHIVE_DEST"); v != "" {
		c.Download.Dest = v
	}
	if v := os.Getenv("IGARCHIVE_FAST_UPDATE"); v != "" {
		c.Download.FastUpdate = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("IGARCHIVE_WAIT_BETWEEN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Download.WaitBetween = Duration(d)
		}
	}
	if v := os.Getenv("IGARCHIVE_CONNECTION_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.ConnectionAttempts = n
		}
	}
	if v := os.Getenv("IGARCHIVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// LoadFromFile loads configuration from a YAML file. An empty path searches
// the standard locations; a missing file is not an error in that case.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
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

func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igarchive.yaml",
		".igarchive.yml",
		filepath.Join(home, ".config", "igarchive", "config.yaml"),
		filepath.Join(home, ".igarchive.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration for inconsistencies. Anonymous runs are
// legal, so no credential field is required.
func (c *Config) Validate() error {
	var errs []error

	if c.Download.WaitBetween < 0 {
		errs = append(errs, errors.New("wait between downloads cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if len(c.Retry.Schedule) == 0 {
		errs = append(errs, errors.New("retry schedule cannot be empty"))
	}
	for _, d := range c.Retry.Schedule {
		if d <= 0 {
			errs = append(errs, errors.New("retry schedule entries must be positive"))
			break
		}
	}
	if c.Retry.ConnectionAttempts <= 0 {
		errs = append(errs, errors.New("connection attempts must be positive"))
	}
	if c.RateLimit.PageRequests <= 0 {
		errs = append(errs, errors.New("page requests per period must be positive"))
	}
	if c.RateLimit.Period <= 0 {
		errs = append(errs, errors.New("rate limit period must be positive"))
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeFlags applies command line flag values on top of the configuration.
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if v, ok := flags["dest"].(string); ok && v != "" {
		c.Download.Dest = v
	}
	if v, ok := flags["login"].(string); ok && v != "" {
		c.Instagram.Username = v
	}
	if v, ok := flags["session-file"].(string); ok && v != "" {
		c.Instagram.SessionFile = v
	}
	if v, ok := flags["sessionid"].(string); ok && v != "" {
		c.Instagram.SessionID = v
	}
	if v, ok := flags["fast-update"].(bool); ok && v {
		c.Download.FastUpdate = true
	}
	if v, ok := flags["wait"].(time.Duration); ok && v >= 0 {
		c.Download.WaitBetween = Duration(v)
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load builds the effective configuration. Precedence, lowest to highest:
// defaults, config file, .env file, environment, command line flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igarchive.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.LoadFromEnv()
	cfg.MergeFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
