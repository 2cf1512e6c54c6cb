package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# Screening E2E Configuration File
#
# Every key can be overridden with an E2E_ prefixed environment variable,
# e.g. E2E_CLEANUP_POLICY=pass-only. API_BASE_URL, TEST_DATA_MODE, DB_* and
# E2E_RETRIES are also honored.
#
# cleanup.policy:
#   last-or-failure  clean after the last test of a suite, or after a
#                    test's final failed attempt
#   pass-only        clean only after a passing final attempt; failures
#                    keep their data for debugging

`

// InitConfig writes a default configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	content := append([]byte(configHeader), data...)
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
