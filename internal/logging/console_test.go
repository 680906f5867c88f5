package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, true))

	logger.Error("encode failed")

	line := strings.TrimSuffix(buf.String(), "\n")
	if !strings.HasPrefix(line, "ERROR: encode failed -- [") || !strings.HasSuffix(line, "]") {
		t.Errorf("Unexpected row: %q", line)
	}
}

func TestConsoleHandler_Verbosity(t *testing.T) {
	testCases := []struct {
		name    string
		verbose bool
		log     func(*slog.Logger)
		want    string
	}{
		{"info_verbose", true, func(l *slog.Logger) { l.Info("m") }, "INFO: m"},
		{"info_quiet", false, func(l *slog.Logger) { l.Info("m") }, ""},
		{"debug_quiet", false, func(l *slog.Logger) { l.Debug("m") }, ""},
		{"warn_quiet", false, func(l *slog.Logger) { l.Warn("m") }, "WARNING: m"},
		{"error_quiet", false, func(l *slog.Logger) { l.Error("m") }, "ERROR: m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(slog.New(NewConsoleHandler(&buf, tc.verbose)))

			if tc.want == "" {
				if buf.Len() != 0 {
					t.Errorf("Expected no output, got %q", buf.String())
				}
				return
			}
			if !strings.HasPrefix(buf.String(), tc.want) {
				t.Errorf("Output %q should start with %q", buf.String(), tc.want)
			}
		})
	}
}

func TestConsoleHandler_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, true)
	if h.color {
		t.Error("Colour should be disabled for non-terminal writers")
	}

	slog.New(h).Warn("plain")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("Unexpected escape sequence in %q", buf.String())
	}
}

func TestConsoleHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, true)).
		With("program", "ffmpeg").
		WithGroup("result")

	logger.Info("command_exited", "exit_code", 1)

	output := buf.String()
	if !strings.Contains(output, "command_exited program=ffmpeg result.exit_code=1 --") {
		t.Errorf("Unexpected attribute rendering: %q", output)
	}
}

func TestSeverity(t *testing.T) {
	testCases := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, SeverityDebug},
		{slog.LevelInfo, SeverityInfo},
		{slog.LevelWarn, SeverityWarning},
		{slog.LevelError, SeverityError},
		{slog.LevelError + 4, SeverityError},
	}

	for _, tc := range testCases {
		if got := severity(tc.level); got != tc.want {
			t.Errorf("severity(%v) = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestFanout(t *testing.T) {
	var quiet, loud bytes.Buffer
	logger := slog.New(Fanout(
		NewConsoleHandler(&quiet, false),
		NewConsoleHandler(&loud, true),
	))

	logger.Info("only loud")
	logger.Error("both")

	if strings.Contains(quiet.String(), "only loud") {
		t.Error("Quiet handler should not receive info rows")
	}
	if !strings.Contains(quiet.String(), "both") || !strings.Contains(loud.String(), "both") {
		t.Error("Both handlers should receive error rows")
	}
	if !strings.Contains(loud.String(), "only loud") {
		t.Error("Verbose handler should receive info rows")
	}
}
