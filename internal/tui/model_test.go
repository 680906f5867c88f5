package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/render-runner/internal/job"
)

// =============================================================================
// Helpers
// =============================================================================

func testJob() *job.Job {
	return &job.Job{
		Name: "trailer",
		Steps: []job.Step{
			{Name: "render", Tool: job.ToolBlender},
			{Name: "join", Tool: job.ToolConcat},
			{Name: "probe", Tool: job.ToolProbe},
		},
	}
}

type fixedRunning int

func (f fixedRunning) Running() int { return int(f) }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// =============================================================================
// Tests: New
// =============================================================================

func TestNew(t *testing.T) {
	model := New(Config{Job: testJob(), MetricsAddr: "localhost:9090"})

	if model.jobName != "trailer" {
		t.Errorf("jobName = %q, want trailer", model.jobName)
	}
	if len(model.steps) != 3 {
		t.Fatalf("len(steps) = %d, want 3", len(model.steps))
	}
	for i := range model.steps {
		if model.Status(i) != StepPending {
			t.Errorf("step %d status = %v, want pending", i, model.Status(i))
		}
	}
	if model.width != 80 || model.height != 24 {
		t.Errorf("size = %dx%d, want 80x24", model.width, model.height)
	}
}

func TestNew_NilJob(t *testing.T) {
	model := New(Config{})
	if model.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", model.Progress())
	}
	if model.View() == "" {
		t.Error("View() should render without a job")
	}
}

func TestModel_Init(t *testing.T) {
	if New(Config{Job: testJob()}).Init() == nil {
		t.Error("Init() returned nil cmd")
	}
}

// =============================================================================
// Tests: Update - Key Messages
// =============================================================================

func TestModel_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantQuit bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"esc", true},
		{"x", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cancelled := false
			m := New(Config{Job: testJob(), Cancel: func() { cancelled = true }})

			var msg tea.KeyMsg
			switch tt.key {
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)}
			}

			m, cmd := update(t, m, msg)
			if got := isQuit(cmd); got != tt.wantQuit {
				t.Errorf("quit = %v, want %v", got, tt.wantQuit)
			}
			if cancelled != tt.wantQuit {
				t.Errorf("cancel called = %v, want %v", cancelled, tt.wantQuit)
			}
			if m.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", m.quitting, tt.wantQuit)
			}
		})
	}
}

func TestModel_Update_QuitAfterDoneDoesNotCancel(t *testing.T) {
	cancelled := false
	m := New(Config{Job: testJob(), Cancel: func() { cancelled = true }})
	m, _ = update(t, m, DoneMsg{Summary: job.Summary{Succeeded: true}})

	m.quitting = false
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !isQuit(cmd) {
		t.Error("q should quit")
	}
	if cancelled {
		t.Error("cancel should not be called after the job finished")
	}
}

// =============================================================================
// Tests: Update - Job Events
// =============================================================================

func TestModel_Update_Events(t *testing.T) {
	m := New(Config{Job: testJob()})

	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: 0, Step: "render", Program: "blender"})
	if m.Status(0) != StepRunning {
		t.Errorf("status = %v, want running", m.Status(0))
	}
	if m.steps[0].program != "blender" {
		t.Errorf("program = %q", m.steps[0].program)
	}

	m, _ = update(t, m, EventMsg{Type: job.StepFinished, Index: 0, Result: job.ResultOK, Duration: 2 * time.Second})
	if m.Status(0) != StepOK || m.steps[0].duration != 2*time.Second {
		t.Errorf("row = %+v", m.steps[0])
	}

	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: 1})
	m, _ = update(t, m, EventMsg{Type: job.StepFinished, Index: 1, Result: job.ResultFailed, ExitCode: 3, Report: "reports/ffmpeg_abc.txt"})
	if m.Status(1) != StepFailed || m.steps[1].exitCode != 3 {
		t.Errorf("row = %+v", m.steps[1])
	}

	if m.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", m.Completed())
	}
	if got := m.Progress(); got < 0.66 || got > 0.67 {
		t.Errorf("Progress() = %v, want 2/3", got)
	}
}

func TestModel_Update_EventOutOfRange(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: 7})
	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: -1})
	if m.Completed() != 0 {
		t.Errorf("Completed() = %d, want 0", m.Completed())
	}
}

func TestStatusForResult(t *testing.T) {
	tests := []struct {
		result string
		want   StepStatus
	}{
		{job.ResultOK, StepOK},
		{job.ResultFailed, StepFailed},
		{job.ResultCancelled, StepCancelled},
		{"", StepFailed},
	}
	for _, tt := range tests {
		if got := statusForResult(tt.result); got != tt.want {
			t.Errorf("statusForResult(%q) = %v, want %v", tt.result, got, tt.want)
		}
	}
}

func TestModel_Update_Done(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, cmd := update(t, m, DoneMsg{Summary: job.Summary{Cancelled: true}, Err: errors.New("cancelled")})

	if !isQuit(cmd) {
		t.Error("DoneMsg should quit")
	}
	if !m.Done() || !m.cancelled || m.succeeded {
		t.Errorf("done=%v cancelled=%v succeeded=%v", m.Done(), m.cancelled, m.succeeded)
	}
	if m.View() != "" {
		t.Error("View() should be empty once quitting")
	}
}

func TestModel_Update_Tick(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, cmd := update(t, m, TickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule another tick while running")
	}

	m.done = true
	_, cmd = update(t, m, TickMsg(time.Now()))
	if cmd != nil {
		t.Error("tick should stop once done")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", m.width, m.height)
	}
}

// =============================================================================
// Tests: View
// =============================================================================

func TestModel_View(t *testing.T) {
	m := New(Config{Job: testJob(), MetricsAddr: "0.0.0.0:17091", Running: fixedRunning(1)})
	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: 0, Program: "blender"})

	out := m.View()
	for _, want := range []string{"render-runner", "trailer", "Steps: 0/3", "render", "ffmpeg-concat", "running", "pending", "Running commands", "17091"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_RenderResult(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, _ = update(t, m, EventMsg{Type: job.StepFinished, Index: 1, Result: job.ResultFailed, ExitCode: 1, Report: "reports/ffmpeg_0123456789ab.txt"})
	m.done = true
	m.err = errors.New("step join: exit code 1: step failed")

	out := m.renderResult()
	if !strings.Contains(out, "ffmpeg_0123456789ab.txt") || !strings.Contains(out, "step failed") {
		t.Errorf("renderResult() = %q", out)
	}

	if got := New(Config{Job: testJob()}).renderResult(); got != "" {
		t.Errorf("renderResult() with nothing to show = %q", got)
	}
}

// =============================================================================
// Tests: Formatting Helpers
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{3*time.Hour + 5*time.Minute + 7*time.Second, "03:05:07"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatStepTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{1500 * time.Millisecond, "1.5s"},
		{2 * time.Minute, "00:02:00"},
	}
	for _, tt := range tests {
		if got := formatStepTime(tt.d); got != tt.want {
			t.Errorf("formatStepTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"a-very-long-step-name", 10, "a-very-..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}

func TestModel_Update_Progress(t *testing.T) {
	m := New(Config{Job: testJob()})
	m, _ = update(t, m, EventMsg{Type: job.StepStarted, Index: 0})
	m, _ = update(t, m, EventMsg{Type: job.StepProgress, Index: 0, Frame: 12, Frames: 48})

	if m.steps[0].frame != 12 || m.steps[0].frames != 48 {
		t.Errorf("row = %+v", m.steps[0])
	}
	if m.Status(0) != StepRunning {
		t.Errorf("progress changed status to %v", m.Status(0))
	}
	if !strings.Contains(m.View(), "12/48") {
		t.Error("View() missing frame progress")
	}
}

func TestFormatFrames(t *testing.T) {
	tests := []struct {
		frame  int64
		frames int
		want   string
	}{
		{0, 48, "-"},
		{12, 48, "12/48"},
		{7, 0, "7"},
	}
	for _, tt := range tests {
		if got := formatFrames(tt.frame, tt.frames); got != tt.want {
			t.Errorf("formatFrames(%d, %d) = %q, want %q", tt.frame, tt.frames, got, tt.want)
		}
	}
}
