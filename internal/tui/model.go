package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/render-runner/internal/job"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// EventMsg carries a runner event.
type EventMsg job.Event

// DoneMsg reports that the job has finished.
type DoneMsg struct {
	Summary job.Summary
	Err     error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// stepRow is the display state of one step.
type stepRow struct {
	name     string
	tool     string
	program  string
	status   StepStatus
	started  time.Time
	duration time.Duration
	exitCode int
	report   string
	frame    int64
	frames   int
}

// RunningSource reports how many commands are currently running.
type RunningSource interface {
	Running() int
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	jobName     string
	metricsAddr string
	cancel      func()
	running     RunningSource

	// Current state
	steps      []stepRow
	startTime  time.Time
	lastUpdate time.Time
	done       bool
	succeeded  bool
	cancelled  bool
	err        error

	// Display options
	width  int
	height int

	// Quit flag
	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Job         *job.Job
	MetricsAddr string

	// Cancel stops the running job. Called when the user quits early.
	Cancel func()

	// Running is optional.
	Running RunningSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	m := Model{
		metricsAddr: cfg.MetricsAddr,
		cancel:      cfg.Cancel,
		running:     cfg.Running,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
	if cfg.Job != nil {
		m.jobName = cfg.Job.Name
		m.steps = make([]stepRow, len(cfg.Job.Steps))
		for i, s := range cfg.Job.Steps {
			m.steps[i] = stepRow{name: s.Name, tool: s.Tool}
		}
	}
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
				m.cancelled = true
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.lastUpdate = time.Now()
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case EventMsg:
		m.applyEvent(job.Event(msg))
		m.lastUpdate = time.Now()
		return m, nil

	case DoneMsg:
		m.done = true
		m.succeeded = msg.Summary.Succeeded
		m.cancelled = msg.Summary.Cancelled
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e job.Event) {
	if e.Index < 0 || e.Index >= len(m.steps) {
		return
	}
	row := &m.steps[e.Index]
	row.program = e.Program

	switch e.Type {
	case job.StepStarted:
		row.status = StepRunning
		row.started = time.Now()
	case job.StepProgress:
		row.frame = e.Frame
		row.frames = e.Frames
	case job.StepFinished:
		row.status = statusForResult(e.Result)
		row.duration = e.Duration
		row.exitCode = e.ExitCode
		row.report = e.Report
	}
}

func statusForResult(result string) StepStatus {
	switch result {
	case job.ResultOK:
		return StepOK
	case job.ResultCancelled:
		return StepCancelled
	default:
		return StepFailed
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderJobView()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the job started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Completed returns the number of steps that have finished.
func (m Model) Completed() int {
	n := 0
	for _, s := range m.steps {
		if s.status.Finished() {
			n++
		}
	}
	return n
}

// Progress returns the fraction of finished steps (0.0 to 1.0).
func (m Model) Progress() float64 {
	if len(m.steps) == 0 {
		return 0
	}
	return float64(m.Completed()) / float64(len(m.steps))
}

// Status returns the display state of step i.
func (m Model) Status(i int) StepStatus {
	if i < 0 || i >= len(m.steps) {
		return StepPending
	}
	return m.steps[i].status
}

// Done reports whether the job has finished.
func (m Model) Done() bool {
	return m.done
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendEvent forwards a runner event to the TUI.
func SendEvent(p *tea.Program, e job.Event) {
	if p != nil {
		p.Send(EventMsg(e))
	}
}

// SendDone reports the job result to the TUI, which then exits.
func SendDone(p *tea.Program, sum job.Summary, err error) {
	if p != nil {
		p.Send(DoneMsg{Summary: sum, Err: err})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatFrames formats frame progress as "12/48", "12" or "-".
func formatFrames(frame int64, frames int) string {
	switch {
	case frame <= 0:
		return "-"
	case frames > 0:
		return fmt.Sprintf("%d/%d", frame, frames)
	default:
		return fmt.Sprintf("%d", frame)
	}
}

// formatStepTime formats a step duration with one decimal of seconds.
func formatStepTime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return formatDuration(d)
}
