package tui

import (
	"strings"
	"testing"
)

func TestStepStatus_String(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepPending, "pending"},
		{StepRunning, "running"},
		{StepOK, "ok"},
		{StepFailed, "failed"},
		{StepCancelled, "cancelled"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStepStatus_Finished(t *testing.T) {
	finished := map[StepStatus]bool{
		StepPending:   false,
		StepRunning:   false,
		StepOK:        true,
		StepFailed:    true,
		StepCancelled: true,
	}
	for status, want := range finished {
		if got := status.Finished(); got != want {
			t.Errorf("%v.Finished() = %v, want %v", status, got, want)
		}
	}
}

func TestGetStatusLabel(t *testing.T) {
	tests := []struct {
		status StepStatus
		icon   string
	}{
		{StepPending, "○"},
		{StepRunning, "●"},
		{StepOK, "✓"},
		{StepFailed, "✗"},
		{StepCancelled, "⚠"},
	}
	for _, tt := range tests {
		label := GetStatusLabel(tt.status)
		if !strings.Contains(label, tt.icon) || !strings.Contains(label, tt.status.String()) {
			t.Errorf("GetStatusLabel(%v) = %q", tt.status, label)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		width    int
		percent  string
	}{
		{"empty", 0, 20, "0%"},
		{"half", 0.5, 20, "50%"},
		{"full", 1, 20, "100%"},
		{"over", 1.5, 20, "150%"},
		{"narrow", 0.5, 2, "50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := RenderProgressBar(tt.progress, tt.width)
			if !strings.Contains(bar, tt.percent) {
				t.Errorf("RenderProgressBar() = %q, want %s", bar, tt.percent)
			}
		})
	}
}

func TestRepeatChar(t *testing.T) {
	if got := repeatChar('x', 3); got != "xxx" {
		t.Errorf("repeatChar = %q", got)
	}
	if got := repeatChar('x', -1); got != "" {
		t.Errorf("repeatChar negative = %q", got)
	}
}

func TestRenderKeyValue(t *testing.T) {
	out := RenderKeyValue("Report", "reports/x.txt")
	if !strings.Contains(out, "Report:") || !strings.Contains(out, "reports/x.txt") {
		t.Errorf("RenderKeyValue() = %q", out)
	}
}
