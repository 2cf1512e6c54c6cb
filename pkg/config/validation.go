package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct tags and the rules
// that span several fields. It does not normalize values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	return validateCrossField(cfg)
}

func validateCrossField(cfg *Config) error {
	var errs []string

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, "telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		errs = append(errs, "metrics.textfile is required when metrics are enabled")
	}
	if cfg.Snapshot.Archive.Enabled && cfg.Snapshot.Archive.Bucket == "" {
		errs = append(errs, "snapshot.archive.bucket is required when archiving is enabled")
	}
	if (cfg.API.AdminEmail == "") != (cfg.API.AdminPassword == "") {
		errs = append(errs, "api.admin_email and api.admin_password must be set together")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
