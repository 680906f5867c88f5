package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// MaxPendingLines bounds how many rows are held while the log file is locked.
// When the queue is full the oldest row is dropped and counted; the next
// successful write reports the count.
const MaxPendingLines = 64

// FileHandler appends "SEVERITY [timestamp]: message" rows to a log file that
// may be shared with other processes.
//
// The file is opened, locked, written and closed for every row. If another
// writer holds the lock the row is queued and written, ahead of the new row,
// by the next call that gets the lock. Handle never fails because of the sink.
//
// With verbose off only ERROR rows are written.
type FileHandler struct {
	sink  *fileSink
	state lineState
}

type fileSink struct {
	mu      sync.Mutex
	path    string
	verbose bool
	pending []string
	dropped int
}

// NewFileHandler creates a handler appending to path.
func NewFileHandler(path string, verbose bool) *FileHandler {
	return &FileHandler{
		sink: &fileSink{path: path, verbose: verbose},
	}
}

// Path returns the log file path.
func (h *FileHandler) Path() string {
	return h.sink.path
}

// Pending returns the number of rows waiting for the file to become available.
func (h *FileHandler) Pending() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.pending)
}

// Enabled reports whether records at level are written.
func (h *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.sink.verbose || level >= slog.LevelError
}

// Handle formats the record and appends it to the file.
func (h *FileHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("%s [%s]: %s", severity(r.Level), timestamp(r.Time), h.state.message(r))
	h.sink.write(line)
	return nil
}

// WithAttrs returns a handler that appends attrs to every row.
func (h *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FileHandler{sink: h.sink, state: h.state.withAttrs(attrs)}
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *FileHandler) WithGroup(name string) slog.Handler {
	return &FileHandler{sink: h.sink, state: h.state.withGroup(name)}
}

func (s *fileSink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.enqueue(line)
		return
	}
	defer f.Close()

	locked, err := tryLock(f)
	if err != nil || !locked {
		s.enqueue(line)
		return
	}
	defer unlock(f)

	s.flush(f, line)
}

// flush writes the queued rows followed by line to w. On a short write the
// rows that fully reached w leave the queue and the rest, line included,
// stay queued so nothing is written twice.
func (s *fileSink) flush(w io.Writer, line string) {
	rows := make([]string, 0, len(s.pending)+2)
	if s.dropped > 0 {
		rows = append(rows, fmt.Sprintf("%s [%s]: %d log lines dropped while the log file was locked",
			SeverityWarning, timestamp(time.Now()), s.dropped))
	}
	notices := len(rows)
	rows = append(rows, s.pending...)
	rows = append(rows, line)

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}

	n, err := io.WriteString(w, b.String())
	if err == nil {
		s.pending = s.pending[:0]
		s.dropped = 0
		return
	}

	written := 0
	for written < len(rows) && n >= len(rows[written])+1 {
		n -= len(rows[written]) + 1
		written++
	}
	if written > 0 {
		// the dropped notice, when present, went out first
		s.dropped = 0
	}

	s.pending = s.pending[:0]
	for _, r := range rows[max(written, notices):] {
		s.enqueue(r)
	}
}

func (s *fileSink) enqueue(line string) {
	if len(s.pending) >= MaxPendingLines {
		copy(s.pending, s.pending[1:])
		s.pending = s.pending[:len(s.pending)-1]
		s.dropped++
	}
	s.pending = append(s.pending, line)
}
