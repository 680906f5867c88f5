package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestFileHandler_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brc.log")
	logger := slog.New(NewFileHandler(path, true))

	logger.Warn("chunk took too long", "chunk", 3)

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "WARNING [") {
		t.Errorf("Line should start with severity and timestamp: %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "]: chunk took too long chunk=3") {
		t.Errorf("Line should end with message: %q", lines[0])
	}
}

func TestFileHandler_QuietWritesOnlyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brc.log")
	logger := slog.New(NewFileHandler(path, false))

	logger.Info("info should vanish")
	logger.Warn("warn should vanish")
	logger.Error("error stays")

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("Expected only the error line, got %v", lines)
	}
	if !strings.Contains(lines[0], "error stays") || !strings.HasPrefix(lines[0], "ERROR [") {
		t.Errorf("Unexpected line: %q", lines[0])
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "info should vanish") {
		t.Error("Info line leaked into the log file")
	}
}

func TestFileHandler_AppendsAcrossHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brc.log")

	slog.New(NewFileHandler(path, true)).Info("first")
	slog.New(NewFileHandler(path, true)).Info("second")

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %v", lines)
	}
	if !strings.HasSuffix(lines[0], "first") || !strings.HasSuffix(lines[1], "second") {
		t.Errorf("Lines out of order: %v", lines)
	}
}

func TestFileHandler_UnwritablePathDoesNotFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "brc.log")
	h := NewFileHandler(path, true)
	logger := slog.New(h)

	// Must not panic or block
	logger.Error("nowhere to go")

	if h.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", h.Pending())
	}
}

func TestFileHandler_PendingIsBounded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "later", "brc.log")
	h := NewFileHandler(path, true)
	logger := slog.New(h)

	for i := 0; i < MaxPendingLines+5; i++ {
		logger.Info("queued")
	}
	if h.Pending() != MaxPendingLines {
		t.Fatalf("Pending = %d, want %d", h.Pending(), MaxPendingLines)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	logger.Info("flushed")

	lines := readLines(t, path)
	// dropped notice + queued rows + new row
	if len(lines) != MaxPendingLines+2 {
		t.Fatalf("Expected %d lines, got %d", MaxPendingLines+2, len(lines))
	}
	if !strings.Contains(lines[0], "5 log lines dropped") {
		t.Errorf("First line should report dropped rows: %q", lines[0])
	}
	if !strings.HasSuffix(lines[len(lines)-1], "flushed") {
		t.Errorf("Last line should be the new row: %q", lines[len(lines)-1])
	}
	if h.Pending() != 0 {
		t.Errorf("Pending after flush = %d, want 0", h.Pending())
	}
}

// shortWriter accepts at most limit bytes and then fails.
type shortWriter struct {
	limit int
	buf   strings.Builder
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		w.buf.Write(p[:w.limit])
		return w.limit, io.ErrShortWrite
	}
	w.buf.Write(p)
	return len(p), nil
}

func TestFileSink_ShortWriteKeepsOnlyUnwrittenRows(t *testing.T) {
	tests := []struct {
		name        string
		pending     []string
		dropped     int
		limit       int
		wantPending []string
		wantDropped int
	}{
		{
			name:        "nothing written",
			pending:     []string{"one", "two"},
			limit:       0,
			wantPending: []string{"one", "two", "new"},
		},
		{
			name:        "first row written",
			pending:     []string{"one", "two"},
			limit:       len("one\n"),
			wantPending: []string{"two", "new"},
		},
		{
			name:        "row cut in the middle stays queued",
			pending:     []string{"one", "two"},
			limit:       len("one\ntw"),
			wantPending: []string{"two", "new"},
		},
		{
			name:        "queue written, new row cut",
			pending:     []string{"one", "two"},
			limit:       len("one\ntwo\nne"),
			wantPending: []string{"new"},
		},
		{
			name:        "dropped notice not written",
			pending:     []string{"one"},
			dropped:     3,
			limit:       0,
			wantPending: []string{"one", "new"},
			wantDropped: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fileSink{pending: append([]string(nil), tt.pending...), dropped: tt.dropped}
			w := &shortWriter{limit: tt.limit}

			s.flush(w, "new")

			if strings.Join(s.pending, ",") != strings.Join(tt.wantPending, ",") {
				t.Errorf("pending = %q, want %q", s.pending, tt.wantPending)
			}
			if s.dropped != tt.wantDropped {
				t.Errorf("dropped = %d, want %d", s.dropped, tt.wantDropped)
			}
		})
	}
}

func TestFileSink_ShortWriteAfterNotice(t *testing.T) {
	s := &fileSink{pending: []string{"one"}, dropped: 2}
	w := &shortWriter{limit: 1 << 20}

	// Measure the notice by letting it through, then cut right after it
	s.flush(w, "sizing")
	noticeLen := strings.Index(w.buf.String(), "\n") + 1

	s = &fileSink{pending: []string{"one"}, dropped: 2}
	s.flush(&shortWriter{limit: noticeLen}, "new")

	if s.dropped != 0 {
		t.Errorf("dropped = %d, want 0 once the notice is written", s.dropped)
	}
	if strings.Join(s.pending, ",") != "one,new" {
		t.Errorf("pending = %q, want [one new]", s.pending)
	}
}

func TestFileHandler_Path(t *testing.T) {
	h := NewFileHandler("/tmp/x.log", false)
	if h.Path() != "/tmp/x.log" {
		t.Errorf("Path = %q", h.Path())
	}
}
