package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"
)

// LoadSettings overlays the YAML settings file at path onto cfg.
// Keys missing from the file leave cfg unchanged.
func LoadSettings(path string, cfg *Config) error {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load settings from %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return nil
}

// settingsFile mirrors the persisted part of Config. Durations are written
// as strings so the file round-trips through LoadSettings.
type settingsFile struct {
	BlenderPath string `yaml:"blender_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	GracePeriod string `yaml:"grace_period"`
	ReportDir   string `yaml:"report_dir"`
	HistoryDB   string `yaml:"history_db"`
	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
	LogFormat   string `yaml:"log_format"`
	LogFile     string `yaml:"log_file"`
	TUIEnabled  bool   `yaml:"tui"`
}

// SaveSettings writes the persistent settings of cfg to path as YAML.
func SaveSettings(path string, cfg *Config) error {
	data, err := goyaml.Marshal(settingsFile{
		BlenderPath: cfg.BlenderPath,
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		GracePeriod: cfg.GracePeriod.String(),
		ReportDir:   cfg.ReportDir,
		HistoryDB:   cfg.HistoryDB,
		MetricsAddr: cfg.MetricsAddr,
		Verbose:     cfg.Verbose,
		LogFormat:   cfg.LogFormat,
		LogFile:     cfg.LogFile,
		TUIEnabled:  cfg.TUIEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings to %s: %w", path, err)
	}
	return nil
}
