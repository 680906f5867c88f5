// Package config provides configuration management for render-runner.
//
// Values come from three layers: built-in defaults, an optional YAML
// settings file, and command-line flags. Flags given explicitly on the
// command line win over the settings file.
package config

import "time"

// Config holds all configuration options for a run.
// Fields are tagged for both koanf (loading) and yaml (saving).
type Config struct {
	// Job
	JobFile      string `koanf:"-" yaml:"-"`
	SettingsFile string `koanf:"-" yaml:"-"`

	// Tools
	BlenderPath string        `koanf:"blender_path" yaml:"blender_path"`
	FFmpegPath  string        `koanf:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath string        `koanf:"ffprobe_path" yaml:"ffprobe_path"`
	GracePeriod time.Duration `koanf:"grace_period" yaml:"grace_period"`

	// Output
	ReportDir string `koanf:"report_dir" yaml:"report_dir"`
	HistoryDB string `koanf:"history_db" yaml:"history_db"` // empty = disabled

	// Observability
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"` // empty = disabled
	Verbose     bool   `koanf:"verbose" yaml:"verbose"`
	LogFormat   string `koanf:"log_format" yaml:"log_format"` // console, json, text
	LogFile     string `koanf:"log_file" yaml:"log_file"`     // empty = console only

	// Dashboard
	TUIEnabled bool `koanf:"tui" yaml:"tui"`

	// Diagnostic modes
	PrintCmd      bool   `koanf:"-" yaml:"-"`
	SkipPreflight bool   `koanf:"-" yaml:"-"`
	ShowHistory   int    `koanf:"-" yaml:"-"`
	ShowReport    string `koanf:"-" yaml:"-"`
	WriteSettings string `koanf:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Tools (resolved through PATH)
		BlenderPath: "blender",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		GracePeriod: 5 * time.Second,

		// Output
		ReportDir: "reports",
		HistoryDB: "render-runner-history.db",

		// Observability
		Verbose:   false,
		LogFormat: "console",
	}
}

// ToolPaths returns the configured program paths keyed by tool name.
func (c *Config) ToolPaths() map[string]string {
	return map[string]string{
		"blender": c.BlenderPath,
		"ffmpeg":  c.FFmpegPath,
		"ffprobe": c.FFprobePath,
	}
}
