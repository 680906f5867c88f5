package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderJobView renders the step list dashboard.
func (m Model) renderJobView() string {
	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		m.renderSteps(),
	}
	if m.done {
		sections = append(sections, m.renderResult())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" render-runner │ %s │ Steps: %d/%d │ Elapsed: %s ",
		m.jobName,
		m.Completed(),
		len(m.steps),
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	progressBar := RenderProgressBar(m.Progress(), barWidth)

	var status string
	switch {
	case m.cancelled:
		status = statusWarning.Render("⚠ Cancelling...")
	case m.done && m.succeeded:
		status = statusOK.Render("✓ All steps finished")
	case m.done:
		status = statusError.Render("✗ Job failed")
	default:
		status = statusInfo.Render(fmt.Sprintf("Running... %d/%d", m.Completed(), len(m.steps)))
	}

	lines := []string{
		sectionHeaderStyle.Render("Job Progress"),
		progressBar,
		status,
	}
	if m.running != nil {
		lines = append(lines, RenderKeyValue("Running commands", fmt.Sprintf("%d", m.running.Running())))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Step Table
// =============================================================================

func (m Model) renderSteps() string {
	rows := []string{
		sectionHeaderStyle.Render("Steps"),
		tableHeaderStyle.Render(fmt.Sprintf("%-3s %-16s %-13s %-12s %7s %8s %5s", "#", "Step", "Tool", "Status", "Frame", "Time", "Exit")),
	}

	now := time.Now()
	for i, s := range m.steps {
		elapsed := s.duration
		if s.status == StepRunning {
			elapsed = now.Sub(s.started)
		}

		exit := "-"
		if s.status == StepOK || s.status == StepFailed {
			exit = fmt.Sprintf("%d", s.exitCode)
		}

		// Status is styled separately so padding is applied to plain text
		status := GetStatusLabel(s.status)
		pad := 12 - lipgloss.Width(status)
		if pad < 0 {
			pad = 0
		}

		style := tableRowEvenStyle
		if i%2 == 1 {
			style = tableRowOddStyle
		}
		row := style.Render(fmt.Sprintf("%-3d %-16s %-13s ", i+1, truncate(s.name, 16), truncate(s.tool, 13))) +
			status + strings.Repeat(" ", pad) +
			style.Render(fmt.Sprintf(" %7s %8s %5s", formatFrames(s.frame, s.frames), formatStepTime(elapsed), exit))
		rows = append(rows, row)
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Result
// =============================================================================

func (m Model) renderResult() string {
	var lines []string
	for _, s := range m.steps {
		if s.report != "" {
			lines = append(lines, RenderKeyValue("Report ("+s.name+")", s.report))
		}
	}
	if m.err != nil {
		lines = append(lines, statusError.Render(m.err.Error()))
	}
	if len(lines) == 0 {
		return ""
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	left := dimStyle.Render("q: cancel and quit")

	right := ""
	if m.metricsAddr != "" {
		right = dimStyle.Render("Metrics: http://" + m.metricsAddr + "/metrics")
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			mutedStyle.Render(strings.Repeat(" ", padding)),
			right,
		),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
