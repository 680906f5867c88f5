package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Job is the job name shown in the header
	Job string

	// Duration is the total run duration
	Duration time.Duration

	// Succeeded reports whether every step exited with code 0
	Succeeded bool

	// FailedStep names the step that stopped the job, if any
	FailedStep string

	// FailedExitCode is the exit code of FailedStep
	FailedExitCode int

	// Reports lists report files written for failed steps
	Reports []string

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// FormatJobSummary formats the end-of-job summary.
func FormatJobSummary(rec *Recorder, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	fmt.Fprintf(&b, "                        render-runner Summary: %s\n", cfg.Job)
	b.WriteString(heavyRule + "\n")

	result := "OK"
	if !cfg.Succeeded {
		result = "FAILED"
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Result:                 %s\n", result)
	if cfg.FailedStep != "" {
		fmt.Fprintf(&b, "Failed Step:            %s (exit %d %s)\n",
			cfg.FailedStep, cfg.FailedExitCode, exitCodeLabel(cfg.FailedExitCode))
	}
	b.WriteString("\n")

	if rec != nil {
		if programs := rec.Snapshot(); len(programs) > 0 {
			b.WriteString(lightRule)
			b.WriteString("                               Command Timing\n")
			b.WriteString(lightRule + "\n")

			fmt.Fprintf(&b, "  %-14s %5s %10s %10s %10s %10s\n", "Program", "Runs", "Mean", "P50", "P95", "Max")
			b.WriteString("  " + strings.Repeat("─", 64) + "\n")
			for _, p := range programs {
				fmt.Fprintf(&b, "  %-14s %5d %10s %10s %10s %10s\n",
					p.Program, p.Runs, FormatMs(p.Mean), FormatMs(p.P50), FormatMs(p.P95), FormatMs(p.Max))
			}
			b.WriteString("\n")

			if states := formatStates(programs); states != "" {
				b.WriteString(states)
				b.WriteString("\n")
			}
		}
	}

	if len(cfg.Reports) > 0 {
		b.WriteString("Reports:\n")
		for _, r := range cfg.Reports {
			fmt.Fprintf(&b, "  %s\n", r)
		}
		b.WriteString("\n")
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(heavyRule)
	return b.String()
}

// formatStates lists outcome counts across all programs.
func formatStates(programs []ProgramSummary) string {
	totals := make(map[string]int)
	for _, p := range programs {
		for state, n := range p.States {
			totals[state] += n
		}
	}

	states := make([]string, 0, len(totals))
	for s := range totals {
		states = append(states, s)
	}
	sort.Strings(states)

	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, fmt.Sprintf("%s=%d", s, totals[s]))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Outcomes:               " + strings.Join(parts, " ") + "\n"
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
