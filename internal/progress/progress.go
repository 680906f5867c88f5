// Package progress extracts render progress from tool output lines.
//
// Two formats are recognised:
//
// Blender prints one status line per tile or sample while rendering:
//
//	Fra:12 Mem:210.33M (Peak 250.10M) | Time:00:03.21 | Rendering 4 / 64 samples
//
// FFmpeg prints a statistics line, rewritten in place with carriage returns:
//
//	frame=  120 fps= 30 q=-1.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.02x
package progress

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Update is one progress report.
type Update struct {
	// Frame is the current frame number (blender) or frames written (ffmpeg).
	Frame int64

	// FPS is ffmpeg's current encoding rate. Zero for blender.
	FPS float64

	// OutTime is the media position written so far. Zero for blender.
	OutTime time.Duration

	// Speed relative to realtime ("1.02x" -> 1.02). Zero when unknown.
	Speed float64

	// Source is "blender" or "ffmpeg".
	Source string

	// ReceivedAt is when the line was parsed.
	ReceivedAt time.Time
}

// Callback is called for every update that moves the frame counter.
type Callback func(Update)

// LineHandler receives output lines.
type LineHandler interface {
	HandleLine(line string)
}

// Parser watches output lines for progress. It forwards every line to the
// next handler unchanged. Safe for concurrent use.
type Parser struct {
	next     LineHandler
	callback Callback

	mu   sync.Mutex
	last Update

	// Stats for monitoring parser health
	updates        int64
	linesProcessed int64
}

// NewParser creates a parser that forwards lines to next (may be nil) and
// reports progress to cb (may be nil).
func NewParser(next LineHandler, cb Callback) *Parser {
	return &Parser{next: next, callback: cb}
}

// HandleLine parses one line of output.
func (p *Parser) HandleLine(line string) {
	if p.next != nil {
		p.next.HandleLine(line)
	}

	// FFmpeg rewrites its stats line with \r; only complete segments count
	for _, seg := range strings.Split(line, "\r") {
		p.parseSegment(strings.TrimSpace(seg))
	}
}

func (p *Parser) parseSegment(s string) {
	if s == "" {
		return
	}

	var (
		u  Update
		ok bool
	)
	switch {
	case strings.HasPrefix(s, "Fra:"):
		u, ok = parseBlender(s)
	case strings.HasPrefix(s, "frame="):
		u, ok = parseFFmpegStats(s)
	}

	p.mu.Lock()
	p.linesProcessed++
	if !ok || (p.updates > 0 && u.Frame == p.last.Frame && u.Source == p.last.Source) {
		p.mu.Unlock()
		return
	}
	u.ReceivedAt = time.Now()
	p.last = u
	p.updates++
	cb := p.callback
	p.mu.Unlock()

	if cb != nil {
		cb(u)
	}
}

// Last returns the most recent update and whether there was one.
func (p *Parser) Last() (Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.updates > 0
}

// Stats returns parser statistics.
func (p *Parser) Stats() (updates, linesProcessed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates, p.linesProcessed
}

// parseBlender reads the frame number from a "Fra:N ..." line.
func parseBlender(s string) (Update, bool) {
	rest := strings.TrimPrefix(s, "Fra:")
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		rest = rest[:i]
	}
	frame, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Update{}, false
	}
	return Update{Frame: frame, Source: "blender"}, true
}

// parseFFmpegStats reads an ffmpeg statistics line. FFmpeg pads values
// after '=' with spaces, so those are collapsed before splitting fields.
func parseFFmpegStats(s string) (Update, bool) {
	for strings.Contains(s, "= ") {
		s = strings.ReplaceAll(s, "= ", "=")
	}

	u := Update{Source: "ffmpeg"}
	sawFrame := false
	for _, field := range strings.Fields(s) {
		key, value, ok := parseKeyValue(field)
		if !ok {
			continue
		}
		switch key {
		case "frame":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Update{}, false
			}
			u.Frame = n
			sawFrame = true
		case "fps":
			u.FPS, _ = strconv.ParseFloat(value, 64)
		case "time":
			u.OutTime = parseClock(value)
		case "speed":
			u.Speed = parseSpeed(value)
		}
	}
	return u, sawFrame
}

// parseKeyValue splits "key=value" into parts.
//
// Returns empty strings and false if the field doesn't contain '='.
func parseKeyValue(field string) (key, value string, ok bool) {
	idx := strings.Index(field, "=")
	if idx < 0 {
		return "", "", false
	}
	return field[:idx], field[idx+1:], true
}

// parseSpeed converts FFmpeg speed string to float64.
//
// Examples:
//   - "1.00x" -> 1.0
//   - "N/A"   -> 0.0
func parseSpeed(s string) float64 {
	s = strings.TrimSuffix(s, "x")
	if s == "N/A" || s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// parseClock converts "HH:MM:SS.ss" to a duration. Unknown ("N/A") and
// negative positions, which ffmpeg prints before the first frame, yield 0.
func parseClock(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || sec < 0 {
		return 0
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second))
}
