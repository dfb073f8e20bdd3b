package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/yeti47/webcam-ftpry/ccc/logging"
	"github.com/yeti47/webcam-ftpry/pathformat"
	"github.com/yeti47/webcam-ftpry/resolution"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPeriodSeconds  = 5.0
	DefaultPort           = 21
	DefaultTimeoutSeconds = 60
	DefaultJPEGQuality    = 95
	DefaultPathFormat     = "/webcam/%Y-%m-%d/%Y-%m-%dT%H-%M-%SZ.jpg"

	// MinPeriod is the shortest capture period accepted
	MinPeriod = time.Millisecond
)

// Config holds the application configuration
type Config struct {
	DeviceID       int     `yaml:"device_id"`
	OperationDir   string  `yaml:"operation_dir"` // Local copy of every frame, empty to disable
	PeriodSeconds  float64 `yaml:"period_seconds"`
	Hostname       string  `yaml:"hostname"`
	Port           int     `yaml:"port"`
	User           string  `yaml:"user"`
	Password       string  `yaml:"password"`
	PathFormat     string  `yaml:"path_format"` // strftime template for the remote path
	Angle          float64 `yaml:"angle"`       // Counter-clockwise rotation in degrees
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Resolution     string  `yaml:"resolution"`
	JPEGQuality    int     `yaml:"jpeg_quality"`
	LogLevel       string  `yaml:"log_level"`
	LogPath        string  `yaml:"log_path"`
}

// Default returns a configuration with every optional value set
func Default() *Config {
	return &Config{
		DeviceID:       0,
		PeriodSeconds:  DefaultPeriodSeconds,
		Hostname:       "localhost",
		Port:           DefaultPort,
		User:           "anonymous",
		Password:       "",
		PathFormat:     DefaultPathFormat,
		TimeoutSeconds: DefaultTimeoutSeconds,
		JPEGQuality:    DefaultJPEGQuality,
		LogLevel:       string(logging.LogLevelInfo),
	}
}

// LoadConfig loads configuration from a YAML file.
// A missing file is created with default values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaultConfig := Default()
			if err := saveConfig(filename, defaultConfig); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
			fmt.Printf("Default config file created at %s\n", filename)
			return defaultConfig, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults for missing values
	if config.PeriodSeconds == 0 {
		config.PeriodSeconds = DefaultPeriodSeconds
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.PathFormat == "" {
		config.PathFormat = DefaultPathFormat
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if config.JPEGQuality == 0 {
		config.JPEGQuality = DefaultJPEGQuality
	}
	if config.LogLevel == "" {
		config.LogLevel = string(logging.LogLevelInfo)
	}

	return &config, nil
}

// ConfigOverrides holds potential override values for configuration
type ConfigOverrides struct {
	DeviceID       *int
	OperationDir   *string
	PeriodSeconds  *float64
	Hostname       *string
	Port           *int
	User           *string
	Password       *string
	PathFormat     *string
	Angle          *float64
	TimeoutSeconds *int
	Resolution     *string
	LogLevel       *string
}

// Override replaces configuration values with every override that is set
func (c *Config) Override(overrides ConfigOverrides) {
	if overrides.DeviceID != nil && *overrides.DeviceID >= 0 {
		c.DeviceID = *overrides.DeviceID
	}
	if overrides.OperationDir != nil && *overrides.OperationDir != "" {
		c.OperationDir = *overrides.OperationDir
	}
	if overrides.PeriodSeconds != nil && *overrides.PeriodSeconds > 0 {
		c.PeriodSeconds = *overrides.PeriodSeconds
	}
	if overrides.Hostname != nil && *overrides.Hostname != "" {
		c.Hostname = *overrides.Hostname
	}
	if overrides.Port != nil && *overrides.Port > 0 {
		c.Port = *overrides.Port
	}
	if overrides.User != nil && *overrides.User != "" {
		c.User = *overrides.User
	}
	if overrides.Password != nil && *overrides.Password != "" {
		c.Password = *overrides.Password
	}
	if overrides.PathFormat != nil && *overrides.PathFormat != "" {
		c.PathFormat = *overrides.PathFormat
	}
	if overrides.Angle != nil {
		c.Angle = *overrides.Angle
	}
	if overrides.TimeoutSeconds != nil && *overrides.TimeoutSeconds > 0 {
		c.TimeoutSeconds = *overrides.TimeoutSeconds
	}
	if overrides.Resolution != nil && *overrides.Resolution != "" {
		c.Resolution = *overrides.Resolution
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		c.LogLevel = *overrides.LogLevel
	}
}

// Validate checks the configuration before the capture loop starts
func (c *Config) Validate() error {
	var errs []error

	if math.IsNaN(c.PeriodSeconds) || math.IsInf(c.PeriodSeconds, 0) || c.Period() < MinPeriod {
		errs = append(errs, fmt.Errorf("period_seconds must be at least %v, got %v", MinPeriod.Seconds(), c.PeriodSeconds))
	}
	if c.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("device_id must not be negative, got %d", c.DeviceID))
	}
	if c.Hostname == "" {
		errs = append(errs, errors.New("hostname is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if _, err := pathformat.New(c.PathFormat); err != nil {
		errs = append(errs, fmt.Errorf("path_format: %w", err))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if _, err := resolution.Parse(c.Resolution); err != nil {
		errs = append(errs, fmt.Errorf("resolution: %w", err))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality))
	}
	if !logging.LogLevel(c.LogLevel).IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Period returns the capture period
func (c *Config) Period() time.Duration {
	return time.Duration(c.PeriodSeconds * float64(time.Second))
}

// Timeout returns the network timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// saveConfig saves a configuration to a YAML file
func saveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
