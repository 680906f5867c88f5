// Package main provides the render-runner CLI entry point.
//
// render-runner runs the steps of a render job (blender, ffmpeg, ffprobe or
// any other program) one after another, supervising each process and writing
// a report for every step that fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/render-runner/internal/command"
	"github.com/randomizedcoder/render-runner/internal/config"
	"github.com/randomizedcoder/render-runner/internal/history"
	"github.com/randomizedcoder/render-runner/internal/job"
	"github.com/randomizedcoder/render-runner/internal/logging"
	"github.com/randomizedcoder/render-runner/internal/metrics"
	"github.com/randomizedcoder/render-runner/internal/preflight"
	"github.com/randomizedcoder/render-runner/internal/report"
	"github.com/randomizedcoder/render-runner/internal/stats"
	"github.com/randomizedcoder/render-runner/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/render-runner
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("render-runner %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle --write-settings mode
	if cfg.WriteSettings != "" {
		if err := config.SaveSettings(cfg.WriteSettings, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing settings: %v\n", err)
			return 1
		}
		fmt.Printf("Settings written to %s\n", cfg.WriteSettings)
		return 0
	}

	// Initialize logger
	// When TUI is enabled, console output is suppressed to avoid interfering
	// with TUI rendering; the log file still receives records.
	var primary slog.Handler
	if cfg.TUIEnabled {
		primary = logging.NewLoggerWithWriter(io.Discard, "json", "info").Handler()
	} else {
		primary = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose).Handler()
	}
	logger := logging.NewFileLogger(primary, cfg.LogFile, cfg.Verbose)
	logging.SetDefault(logger)

	// Handle --show-history mode
	if cfg.ShowHistory > 0 {
		if err := printHistory(cfg.HistoryDB, cfg.ShowHistory); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
			return 1
		}
		return 0
	}

	// Handle --show-report mode
	if cfg.ShowReport != "" {
		if err := printReport(os.Stdout, cfg.ShowReport); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading report: %v\n", err)
			return 1
		}
		return 0
	}

	j, err := job.Load(cfg.JobFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Job error: %v\n", err)
		return 1
	}

	// Handle --print-cmd mode
	if cfg.PrintCmd {
		if err := printCommands(j, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Preflight checks
	if !cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Tools: requiredTools(j, cfg),
			Dirs:  outputDirs(cfg),
		})
		if !result.Passed || cfg.Verbose {
			preflight.PrintResults(os.Stderr, result)
		}
		if !result.Passed {
			fmt.Fprintln(os.Stderr, "Preflight checks failed (use -skip-preflight to run anyway)")
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"version", version,
		"job", j.Name,
		"steps", len(j.Steps),
		"report_dir", cfg.ReportDir,
		"metrics_addr", cfg.MetricsAddr,
	)

	collector := metrics.NewCollector(metrics.CollectorConfig{Version: version, Job: j.Name})
	rec := stats.NewRecorder()
	opts := []job.Option{
		job.WithMetrics(collector),
		job.WithRecorder(rec),
	}

	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, logger)
		if err := server.Start(); err != nil {
			logger.Error("metrics_server_failed", "error", err)
			return 1
		}
		server.SetReady(true)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn("history_unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, job.WithHistory(store))
		}
	}

	var (
		sum    job.Summary
		runErr error
	)
	if cfg.TUIEnabled {
		sum, runErr = runWithTUI(ctx, j, cfg, logger, collector, opts)
	} else {
		printBanner(j, cfg)
		sum, runErr = job.NewRunner(cfg, logger, opts...).Run(ctx, j)
	}

	fmt.Print(stats.FormatJobSummary(rec, stats.SummaryConfig{
		Job:            j.Name,
		Duration:       sum.Duration,
		Succeeded:      sum.Succeeded,
		FailedStep:     sum.FailedStep,
		FailedExitCode: sum.FailedExitCode,
		Reports:        sum.Reports,
		MetricsAddr:    cfg.MetricsAddr,
	}))

	if runErr != nil {
		logger.Error("job_failed", "job", j.Name, "error", runErr)
		return 1
	}
	return 0
}

// runWithTUI runs the job in the background while the dashboard owns the
// terminal. Quitting the dashboard cancels the job.
func runWithTUI(ctx context.Context, j *job.Job, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, opts []job.Option) (job.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Config{
		Job:         j,
		MetricsAddr: cfg.MetricsAddr,
		Cancel:      cancel,
		Running:     collector,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	opts = append(opts, job.WithEventHandler(func(e job.Event) {
		tui.SendEvent(p, e)
	}))
	runner := job.NewRunner(cfg, logger, opts...)

	var (
		sum    job.Summary
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sum, runErr = runner.Run(ctx, j)
		tui.SendDone(p, sum, runErr)
	}()

	if _, err := p.Run(); err != nil {
		logger.Error("tui_error", "error", err)
		cancel()
	}

	<-done
	return sum, runErr
}

// requiredTools returns the programs the job's steps will run, keyed by tool
// name (or step name for exec steps).
func requiredTools(j *job.Job, cfg *config.Config) map[string]string {
	tools := make(map[string]string)
	for _, s := range j.Steps {
		path, err := job.ProgramPath(s, cfg)
		if err != nil {
			continue
		}
		key := s.Tool
		switch s.Tool {
		case job.ToolConcat:
			key = "ffmpeg"
		case job.ToolExec:
			key = s.Name
		}
		if s.Program != "" && s.Tool != job.ToolExec {
			key = s.Tool + " (" + s.Name + ")"
		}
		tools[key] = path
	}
	return tools
}

// outputDirs returns the folders render-runner writes to.
func outputDirs(cfg *config.Config) []string {
	dirs := []string{cfg.ReportDir}
	if cfg.LogFile != "" {
		dirs = append(dirs, filepath.Dir(cfg.LogFile))
	}
	if cfg.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(cfg.HistoryDB))
	}

	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		clean := filepath.Clean(d)
		if !seen[clean] {
			seen[clean] = true
			out = append(out, clean)
		}
	}
	return out
}

// printBanner prints the startup banner.
func printBanner(j *job.Job, cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                          render-runner                            ║")
	fmt.Println("║        Supervised render pipelines with failure reports           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Job:         %s (%d steps)\n", j.Name, len(j.Steps))
	fmt.Printf("  Reports:     %s\n", cfg.ReportDir)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	if cfg.LogFile != "" {
		fmt.Printf("  Log file:    %s\n", cfg.LogFile)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printCommands prints the command line each step would run.
func printCommands(j *job.Job, cfg *config.Config) error {
	fmt.Printf("# Commands for job %s:\n", j.Name)
	for i, s := range j.Steps {
		cmd, err := job.Build(s, cfg, command.WithLogger(logging.Discard()))
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("# %d. %s\n", i+1, cmd.String())
		fmt.Println(strings.TrimSpace(cmd.ProgramPath() + " " + strings.Join(cmd.Args(), " ")))
	}
	return nil
}

// printHistory prints the most recent n runs.
func printHistory(path string, n int) error {
	if path == "" {
		return errors.New("history is disabled (no -history path)")
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(n)
	if err != nil {
		return err
	}

	fmt.Printf("%-20s %-16s %-16s %-10s %-13s %5s %10s  %s\n",
		"Finished", "Job", "Step", "Program", "State", "Exit", "Duration", "Report")
	for _, e := range entries {
		fmt.Printf("%-20s %-16s %-16s %-10s %-13s %5d %10s  %s\n",
			e.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			e.Job, e.Step, e.Program, e.State, e.ExitCode,
			stats.FormatDuration(e.Duration()), e.ReportPath)
	}
	return nil
}

// printReport prints every record of a report file.
func printReport(w io.Writer, path string) error {
	records, err := report.ReadRecords(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "No records in %s\n", path)
		return nil
	}

	for i, rec := range records {
		fmt.Fprintf(w, "Record %d: %s exited with code %d\n", i+1, rec.Program, rec.ExitCode)
		printStream(w, "stderr", rec.Stderr)
		printStream(w, "stdout", rec.Stdout)
		fmt.Fprintln(w)
	}
	return nil
}

// printStream prints captured output indented under a label.
func printStream(w io.Writer, label, text string) {
	if text == "" {
		fmt.Fprintf(w, "  %s: (empty)\n", label)
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
