package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"

api:
  base_url: "http://api.test:9000/v1/"
  timeout: 10s

snapshot:
  dir: "` + yamlSafePath(tmpDir) + `/snapshots"
  data_mode: snapshot
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.API.BaseURL != "http://api.test:9000/v1" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", cfg.API.Timeout)
	}
	if cfg.Snapshot.DataMode != "SNAPSHOT" {
		t.Errorf("Expected data mode 'SNAPSHOT', got %q", cfg.Snapshot.DataMode)
	}
	if want := filepath.Join(tmpDir, "snapshots", "catalog.db"); filepath.Clean(cfg.Snapshot.CatalogPath) != want {
		t.Errorf("Expected catalog under snapshot dir %q, got %q", want, cfg.Snapshot.CatalogPath)
	}
	if cfg.Cleanup.Policy != "last-or-failure" {
		t.Errorf("Expected default policy 'last-or-failure', got %q", cfg.Cleanup.Policy)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults without a config file, got error: %v", err)
	}
	if cfg.Snapshot.Database.Port != 3306 {
		t.Errorf("Expected default database port 3306, got %d", cfg.Snapshot.Database.Port)
	}
	if cfg.Runner.Retries != 0 {
		t.Errorf("Expected 0 retries by default, got %d", cfg.Runner.Retries)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("cleanup:\n  policy: sometimes\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown cleanup policy")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("E2E_LOGGING_LEVEL", "ERROR")
	t.Setenv("E2E_CLEANUP_POLICY", "pass-only")
	t.Setenv("E2E_RUNNER_ATTEMPT_TIMEOUT", "90s")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
cleanup:
  policy: last-or-failure
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Cleanup.Policy != "pass-only" {
		t.Errorf("Expected policy 'pass-only' from env var, got %q", cfg.Cleanup.Policy)
	}
	if cfg.Runner.AttemptTimeout != 90*time.Second {
		t.Errorf("Expected attempt timeout 90s from env var, got %v", cfg.Runner.AttemptTimeout)
	}
}

func TestLoad_LegacyEnvironmentVariables(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("API_BASE_URL", "https://staging.example.com/api")
	t.Setenv("TEST_DATA_MODE", "dynamic")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("E2E_RETRIES", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.BaseURL != "https://staging.example.com/api" {
		t.Errorf("Expected base URL from API_BASE_URL, got %q", cfg.API.BaseURL)
	}
	if cfg.Snapshot.DataMode != "DYNAMIC" {
		t.Errorf("Expected data mode 'DYNAMIC' from TEST_DATA_MODE, got %q", cfg.Snapshot.DataMode)
	}
	if cfg.Snapshot.Database.Host != "db.internal" || cfg.Snapshot.Database.Port != 3307 {
		t.Errorf("Expected db.internal:3307, got %s:%d", cfg.Snapshot.Database.Host, cfg.Snapshot.Database.Port)
	}
	if cfg.Runner.Retries != 2 {
		t.Errorf("Expected 2 retries from E2E_RETRIES, got %d", cfg.Runner.Retries)
	}
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("API_BASE_URL", "https://legacy.example.com")
	t.Setenv("E2E_API_BASE_URL", "https://prefixed.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.API.BaseURL != "https://prefixed.example.com" {
		t.Errorf("Expected E2E_API_BASE_URL to win, got %q", cfg.API.BaseURL)
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := MustLoad(path); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Cleanup.Policy = "pass-only"
	cfg.API.Timeout = 45 * time.Second

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("Expected config file private to owner, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Cleanup.Policy != "pass-only" {
		t.Errorf("Expected policy 'pass-only', got %q", loaded.Cleanup.Policy)
	}
	if loaded.API.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", loaded.API.Timeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	want := filepath.Join(tmpDir, "screening-e2e", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if DefaultConfigExists() {
		t.Error("Expected no default config in a fresh directory")
	}
	if got := GetConfigDir(); got != filepath.Join(tmpDir, "screening-e2e") {
		t.Errorf("Unexpected config dir %q", got)
	}
}
