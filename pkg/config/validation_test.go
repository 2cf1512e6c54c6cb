package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidPolicy(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cleanup.Policy = "always"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown policy")
	}
	if !strings.Contains(err.Error(), "Cleanup.Policy") {
		t.Errorf("Expected error naming Cleanup.Policy, got: %v", err)
	}
}

func TestValidate_InvalidDataMode(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Snapshot.DataMode = "FIXTURES"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown data mode")
	}
}

func TestValidate_InvalidBaseURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.BaseURL = "not a url"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid base URL")
	}
	if !strings.Contains(err.Error(), "url") {
		t.Errorf("Expected 'url' validation error, got: %v", err)
	}
}

func TestValidate_DatabasePortRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Snapshot.Database.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_RetriesRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Runner.Retries = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative retries")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_ArchiveRequiresBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Snapshot.Archive.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for archive without bucket")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("Expected error about bucket, got: %v", err)
	}

	cfg.Snapshot.Archive.Bucket = "e2e-snapshots"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected archive with bucket to validate, got: %v", err)
	}
}

func TestValidate_AdminCredentialsTogether(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.AdminEmail = "admin@example.com"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for admin email without password")
	}

	cfg.API.AdminPassword = "secret"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected admin credentials to validate, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validate does not normalize.
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}
}
