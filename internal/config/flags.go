package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ParseFlags parses command-line arguments (without the program name) into
// a Config. When -settings is given, the file is applied first and flags
// set on the command line override it.
func ParseFlags(args []string, output io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("render-runner", flag.ContinueOnError)
	fs.SetOutput(output)

	// Custom usage message
	fs.Usage = func() {
		fmt.Fprintf(output, `render-runner - run a render pipeline of external tools with supervision and reports

Usage:
  render-runner [flags] <job.yaml>

Job Flags:
`)
		printFlagCategory(fs, output, []string{"settings", "grace", "report-dir", "history"})

		fmt.Fprintf(output, "\nTools:\n")
		printFlagCategory(fs, output, []string{"blender", "ffmpeg", "ffprobe"})

		fmt.Fprintf(output, "\nObservability:\n")
		printFlagCategory(fs, output, []string{"v", "log-format", "log-file", "metrics"})

		fmt.Fprintf(output, "\nDashboard:\n")
		printFlagCategory(fs, output, []string{"tui"})

		fmt.Fprintf(output, "\nDiagnostics:\n")
		printFlagCategory(fs, output, []string{"print-cmd", "skip-preflight", "show-history", "show-report", "write-settings"})

		fmt.Fprintf(output, `
Examples:
  # Render and concatenate, reports for failed steps in ./reports
  render-runner trailer.yaml

  # Live view with Prometheus metrics
  render-runner -tui -metrics 127.0.0.1:17091 trailer.yaml

  # Show the last 20 recorded command runs
  render-runner -show-history 20

  # Print the records of a failure report
  render-runner -show-report reports/blender_1f3a9c0e7b2d.txt

`)
	}

	// Job
	fs.StringVar(&cfg.SettingsFile, "settings", cfg.SettingsFile, "YAML settings file")
	fs.DurationVar(&cfg.GracePeriod, "grace", cfg.GracePeriod, "Time between SIGTERM and SIGKILL when cancelling")
	fs.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "Folder for failure reports")
	fs.StringVar(&cfg.HistoryDB, "history", cfg.HistoryDB, `Run history database ("" disables)`)

	// Tools
	fs.StringVar(&cfg.BlenderPath, "blender", cfg.BlenderPath, "Path to blender binary")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "Path to FFmpeg binary")
	fs.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "Path to ffprobe binary")

	// Observability
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "console", "json" or "text"`)
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append log lines to this file")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, `Prometheus metrics address ("" disables)`)

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal view of the job")

	// Diagnostics
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print each step's command line and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	fs.IntVar(&cfg.ShowHistory, "show-history", cfg.ShowHistory, "Print the N most recent runs and exit")
	fs.StringVar(&cfg.ShowReport, "show-report", cfg.ShowReport, "Print the records of a report file and exit")
	fs.StringVar(&cfg.WriteSettings, "write-settings", cfg.WriteSettings, "Write the effective settings to this file and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.SettingsFile != "" {
		// Remember explicit flags so they can be re-applied over the file
		explicit := make(map[string]string)
		fs.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		if err := LoadSettings(cfg.SettingsFile, cfg); err != nil {
			return nil, err
		}
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("flag -%s: %w", name, err)
			}
		}
	}

	// Positional argument: job file
	if rest := fs.Args(); len(rest) >= 1 {
		cfg.JobFile = rest[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, w io.Writer, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(w, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(w)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
