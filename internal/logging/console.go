package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errorLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")) // Red
	warningLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")) // Amber
	infoLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB")) // Light gray
	debugLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")) // Dark gray
)

// ConsoleHandler writes "SEVERITY: message -- [timestamp]" rows, coloured by
// severity when the destination is a terminal.
//
// With verbose off only INFO (and DEBUG) rows are suppressed; warnings and
// errors always reach the console.
type ConsoleHandler struct {
	mu      *sync.Mutex
	w       io.Writer
	verbose bool
	color   bool
	state   lineState
}

// NewConsoleHandler creates a console handler writing to w.
func NewConsoleHandler(w io.Writer, verbose bool) *ConsoleHandler {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &ConsoleHandler{
		mu:      &sync.Mutex{},
		w:       w,
		verbose: verbose,
		color:   color,
	}
}

// Enabled reports whether records at level are written.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.verbose || level >= slog.LevelWarn
}

// Handle formats and writes a single record.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("%s: %s -- [%s]", severity(r.Level), h.state.message(r), timestamp(r.Time))
	if h.color {
		line = styleFor(r.Level).Render(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

// WithAttrs returns a handler that appends attrs to every row.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.state = h.state.withAttrs(attrs)
	return &c
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.state = h.state.withGroup(name)
	return &c
}

func styleFor(level slog.Level) lipgloss.Style {
	switch severity(level) {
	case SeverityError:
		return errorLineStyle
	case SeverityWarning:
		return warningLineStyle
	case SeverityInfo:
		return infoLineStyle
	default:
		return debugLineStyle
	}
}
