package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error joining every problem found.
func Validate(cfg *Config) error {
	var errs []error

	// Job file is required unless only inspecting history, a report or writing settings
	if cfg.JobFile == "" && cfg.ShowHistory == 0 && cfg.ShowReport == "" && cfg.WriteSettings == "" {
		errs = append(errs, ValidationError{
			Field:   "job",
			Message: "job file is required",
		})
	}

	for _, tool := range []struct{ field, path string }{
		{"blender_path", cfg.BlenderPath},
		{"ffmpeg_path", cfg.FFmpegPath},
		{"ffprobe_path", cfg.FFprobePath},
	} {
		if tool.path == "" {
			errs = append(errs, ValidationError{
				Field:   tool.field,
				Message: "must not be empty",
			})
		}
	}

	if cfg.GracePeriod <= 0 {
		errs = append(errs, ValidationError{
			Field:   "grace_period",
			Message: "must be positive",
		})
	}

	if cfg.ReportDir == "" {
		errs = append(errs, ValidationError{
			Field:   "report_dir",
			Message: "must not be empty",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"console": true, "json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'console', 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("must be host:port (got %q)", cfg.MetricsAddr),
			})
		}
	}

	if cfg.ShowHistory < 0 {
		errs = append(errs, ValidationError{
			Field:   "show_history",
			Message: "must not be negative",
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
