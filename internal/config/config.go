// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Timeouts() TimeoutsConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserViewport(width, height int)

	// Timeout Setters
	SetImplicitTimeout(d time.Duration)
	SetPollInterval(d time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	TimeoutsCfg TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Timeouts() TimeoutsConfig { return c.TimeoutsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserViewport(width, height int) {
	c.BrowserCfg.Viewport = ViewportConfig{Width: width, Height: height}
}

func (c *Config) SetImplicitTimeout(d time.Duration) { c.TimeoutsCfg.Implicit = d }
func (c *Config) SetPollInterval(d time.Duration)    { c.TimeoutsCfg.PollInterval = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ViewportConfig is the browser window size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the live browser host.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Debug           bool           `mapstructure:"debug" yaml:"debug"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
}

// TimeoutsConfig holds the session timeouts.
type TimeoutsConfig struct {
	// Implicit is how long element lookups keep polling for a match.
	Implicit time.Duration `mapstructure:"implicit" yaml:"implicit"`
	// PollInterval is the cadence of implicit-wait polling.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// Navigation bounds page loads in the live browser host.
	Navigation time.Duration `mapstructure:"navigation" yaml:"navigation"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-webdriver")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)

	// -- Timeouts --
	v.SetDefault("timeouts.implicit", "0s")
	v.SetDefault("timeouts.poll_interval", "100ms")
	v.SetDefault("timeouts.navigation", "30s")
}

// EnvPrefix namespaces the environment variables that override config keys.
// timeouts.implicit is read from SCALPEL_WD_TIMEOUTS_IMPLICIT.
const EnvPrefix = "SCALPEL_WD"

// BindEnv makes v read every known key from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.TimeoutsCfg.Implicit < 0 {
		return fmt.Errorf("timeouts.implicit must not be negative")
	}
	if c.TimeoutsCfg.PollInterval <= 0 {
		return fmt.Errorf("timeouts.poll_interval must be a positive duration")
	}
	if c.TimeoutsCfg.Navigation < 0 {
		return fmt.Errorf("timeouts.navigation must not be negative")
	}
	if err := c.BrowserCfg.Viewport.Validate(); err != nil {
		return fmt.Errorf("browser.viewport configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the viewport dimensions.
func (vp ViewportConfig) Validate() error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", vp.Width, vp.Height)
	}
	return nil
}
