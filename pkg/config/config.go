package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the end-to-end suite and of e2ectl.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (E2E_*, plus the legacy names bound in bindEnv)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`

	// API is the product API the data manager talks to.
	API APIConfig `mapstructure:"api" yaml:"api"`

	Cleanup  CleanupConfig  `mapstructure:"cleanup" yaml:"cleanup"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing of test runs and cleanup.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures cleanup metrics. Test binaries are short-lived,
// so metrics are written to a node_exporter textfile rather than served.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is the .prom file written when the run ends.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// APIConfig configures the product API client.
type APIConfig struct {
	// BaseURL of the product API. Also read from API_BASE_URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// AdminEmail and AdminPassword are the fallback credentials used when a
	// cleanup runs without an authenticated data manager.
	AdminEmail    string `mapstructure:"admin_email" validate:"omitempty,email" yaml:"admin_email"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password,omitempty"`

	// DeviceOS is reported in the "os" field of /auth.
	DeviceOS string `mapstructure:"device_os" yaml:"device_os,omitempty"`

	// EmailDomain is used for generated fixture emails.
	EmailDomain string `mapstructure:"email_domain" validate:"required,hostname_rfc1123" yaml:"email_domain"`
}

// CleanupConfig configures fixture cleanup.
type CleanupConfig struct {
	// Policy is the default policy for TestWithCleanup:
	// "last-or-failure" or "pass-only".
	Policy string `mapstructure:"policy" validate:"required,oneof=last-or-failure pass-only" yaml:"policy"`

	// DedupRetries counts retried tests once when inferring the last test
	// of a suite.
	DedupRetries bool `mapstructure:"dedup_retries" yaml:"dedup_retries"`

	// JournalPath enables the on-disk journal of tracked entities.
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path,omitempty"`

	// RequestTimeout bounds a single executor run.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0" yaml:"request_timeout"`
}

// RunnerConfig configures the suite runner.
type RunnerConfig struct {
	// Retries is the number of extra attempts for a failing test.
	// Also read from E2E_RETRIES.
	Retries int `mapstructure:"retries" validate:"gte=0,lte=10" yaml:"retries"`

	// AttemptTimeout bounds one attempt of one test.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gt=0" yaml:"attempt_timeout"`
}

// BrowserConfig configures the chromedp browser.
type BrowserConfig struct {
	// BaseURL of the web application under test.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url" yaml:"base_url"`

	// ShowWindow runs Chrome with a visible window instead of headless.
	ShowWindow bool `mapstructure:"show_window" yaml:"show_window"`

	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// ScreenshotDir receives a screenshot of every failed browser step.
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`

	// ExecPath overrides the Chrome binary.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path,omitempty"`
}

// SnapshotConfig configures test data bootstrapping.
type SnapshotConfig struct {
	// DataMode is AUTO, DYNAMIC or SNAPSHOT. Also read from TEST_DATA_MODE.
	DataMode string `mapstructure:"data_mode" validate:"required,oneof=AUTO DYNAMIC SNAPSHOT" yaml:"data_mode"`

	// Dir holds <name>.sql dumps and their <name>.json sidecars.
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// MaxAge is how old a snapshot may be and still be used in AUTO mode.
	MaxAge time.Duration `mapstructure:"max_age" validate:"gt=0" yaml:"max_age"`

	// CatalogPath is the SQLite catalog of known snapshots.
	CatalogPath string `mapstructure:"catalog_path" validate:"required" yaml:"catalog_path"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Archive  ArchiveConfig  `mapstructure:"archive" yaml:"archive"`
}

// DatabaseConfig is the MySQL database snapshots are taken from.
// Fields are also read from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD and
// DB_NAME.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required" yaml:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535" yaml:"port"`
	User     string `mapstructure:"user" validate:"required" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Name     string `mapstructure:"name" validate:"required" yaml:"name"`

	// DumpCommand and ClientCommand are the mysqldump and mysql binaries.
	DumpCommand   string `mapstructure:"dump_command" yaml:"dump_command"`
	ClientCommand string `mapstructure:"client_command" yaml:"client_command"`
}

// ArchiveConfig configures uploading snapshots to S3.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket  string `mapstructure:"bucket" yaml:"bucket"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	Region  string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint, e.g. for Localstack or MinIO.
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// Load loads configuration from file, environment, and defaults.
//
// A missing file is not an error: the suite is usually configured through
// the environment alone in CI.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad is Load for an explicitly named file that must exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  e2ectl config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the fallback admin and database passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: E2E_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("E2E")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	registerDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/screening-e2e/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnv maps the variable names the suite has always used onto config
// keys. The E2E_ prefixed name comes first and wins.
func bindEnv(v *viper.Viper) {
	bindings := map[string][]string{
		"api.base_url":               {"E2E_API_BASE_URL", "API_BASE_URL"},
		"snapshot.data_mode":         {"E2E_SNAPSHOT_DATA_MODE", "TEST_DATA_MODE"},
		"snapshot.database.host":     {"E2E_SNAPSHOT_DATABASE_HOST", "DB_HOST"},
		"snapshot.database.port":     {"E2E_SNAPSHOT_DATABASE_PORT", "DB_PORT"},
		"snapshot.database.user":     {"E2E_SNAPSHOT_DATABASE_USER", "DB_USER"},
		"snapshot.database.password": {"E2E_SNAPSHOT_DATABASE_PASSWORD", "DB_PASSWORD"},
		"snapshot.database.name":     {"E2E_SNAPSHOT_DATABASE_NAME", "DB_NAME"},
		"runner.retries":             {"E2E_RUNNER_RETRIES", "E2E_RETRIES"},
	}
	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "screening-e2e")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "screening-e2e")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
