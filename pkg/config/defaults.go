package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Enum-like strings are normalized
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyCleanupDefaults(&cfg.Cleanup)
	applyRunnerDefaults(&cfg.Runner)
	applyBrowserDefaults(&cfg.Browser)
	applySnapshotDefaults(&cfg.Snapshot)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Textfile == "" {
		cfg.Textfile = filepath.Join(stateDir(), "metrics", "cleanup.prom")
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000/api"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "e2e.example.com"
	}
}

func applyCleanupDefaults(cfg *CleanupConfig) {
	if cfg.Policy == "" {
		cfg.Policy = "last-or-failure"
	}
	cfg.Policy = strings.ToLower(cfg.Policy)
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
}

func applyRunnerDefaults(cfg *RunnerConfig) {
	// Retries defaults to 0: a zero value is a valid explicit choice.
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 5 * time.Minute
	}
}

func applyBrowserDefaults(cfg *BrowserConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = filepath.Join(stateDir(), "screenshots")
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.DataMode == "" {
		cfg.DataMode = "AUTO"
	}
	cfg.DataMode = strings.ToUpper(cfg.DataMode)

	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(stateDir(), "snapshots")
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.Dir, "catalog.db")
	}

	db := &cfg.Database
	if db.Host == "" {
		db.Host = "127.0.0.1"
	}
	if db.Port == 0 {
		db.Port = 3306
	}
	if db.User == "" {
		db.User = "root"
	}
	if db.Name == "" {
		db.Name = "screening"
	}
	if db.DumpCommand == "" {
		db.DumpCommand = "mysqldump"
	}
	if db.ClientCommand == "" {
		db.ClientCommand = "mysql"
	}

	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "snapshots/"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
}

// registerDefaults makes every key known to viper so AutomaticEnv can
// override keys that no config file sets.
func registerDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.admin_email", d.API.AdminEmail)
	v.SetDefault("api.admin_password", d.API.AdminPassword)
	v.SetDefault("api.device_os", d.API.DeviceOS)
	v.SetDefault("api.email_domain", d.API.EmailDomain)

	v.SetDefault("cleanup.policy", d.Cleanup.Policy)
	v.SetDefault("cleanup.dedup_retries", d.Cleanup.DedupRetries)
	v.SetDefault("cleanup.journal_path", d.Cleanup.JournalPath)
	v.SetDefault("cleanup.request_timeout", d.Cleanup.RequestTimeout)

	v.SetDefault("runner.retries", d.Runner.Retries)
	v.SetDefault("runner.attempt_timeout", d.Runner.AttemptTimeout)

	v.SetDefault("browser.base_url", d.Browser.BaseURL)
	v.SetDefault("browser.show_window", d.Browser.ShowWindow)
	v.SetDefault("browser.timeout", d.Browser.Timeout)
	v.SetDefault("browser.screenshot_dir", d.Browser.ScreenshotDir)
	v.SetDefault("browser.exec_path", d.Browser.ExecPath)

	v.SetDefault("snapshot.data_mode", d.Snapshot.DataMode)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("snapshot.max_age", d.Snapshot.MaxAge)
	// Derived from snapshot.dir in ApplyDefaults.
	v.SetDefault("snapshot.catalog_path", "")
	v.SetDefault("snapshot.database.host", d.Snapshot.Database.Host)
	v.SetDefault("snapshot.database.port", d.Snapshot.Database.Port)
	v.SetDefault("snapshot.database.user", d.Snapshot.Database.User)
	v.SetDefault("snapshot.database.password", d.Snapshot.Database.Password)
	v.SetDefault("snapshot.database.name", d.Snapshot.Database.Name)
	v.SetDefault("snapshot.database.dump_command", d.Snapshot.Database.DumpCommand)
	v.SetDefault("snapshot.database.client_command", d.Snapshot.Database.ClientCommand)
	v.SetDefault("snapshot.archive.enabled", d.Snapshot.Archive.Enabled)
	v.SetDefault("snapshot.archive.bucket", d.Snapshot.Archive.Bucket)
	v.SetDefault("snapshot.archive.prefix", d.Snapshot.Archive.Prefix)
	v.SetDefault("snapshot.archive.region", d.Snapshot.Archive.Region)
	v.SetDefault("snapshot.archive.endpoint", d.Snapshot.Archive.Endpoint)
	v.SetDefault("snapshot.archive.force_path_style", d.Snapshot.Archive.ForcePathStyle)
}

// stateDir is where run artifacts go: $XDG_STATE_HOME/screening-e2e, or
// .e2e in the working directory.
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "screening-e2e")
	}
	return ".e2e"
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
