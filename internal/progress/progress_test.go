package progress

import (
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu    sync.Mutex
	lines []string
}

func (h *recordingHandler) HandleLine(line string) {
	h.mu.Lock()
	h.lines = append(h.lines, line)
	h.mu.Unlock()
}

func TestParseKeyValue(t *testing.T) {
	tests := []struct {
		input   string
		wantKey string
		wantVal string
		wantOK  bool
	}{
		{"frame=100", "frame", "100", true},
		{"speed=1.00x", "speed", "1.00x", true},
		{"bitrate=N/A", "bitrate", "N/A", true},
		{"invalid", "", "", false},
		{"", "", "", false},
		{"key=", "key", "", true},
		{"key=value=with=equals", "key", "value=with=equals", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, val, ok := parseKeyValue(tt.input)
			if ok != tt.wantOK || key != tt.wantKey || val != tt.wantVal {
				t.Errorf("parseKeyValue(%q) = %q, %q, %v", tt.input, key, val, ok)
			}
		})
	}
}

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.00x", 1.0},
		{"0.95x", 0.95},
		{"10.0x", 10.0},
		{"N/A", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := parseSpeed(tt.input); got != tt.want {
			t.Errorf("parseSpeed(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"00:00:04.00", 4 * time.Second},
		{"01:02:03.50", time.Hour + 2*time.Minute + 3500*time.Millisecond},
		{"N/A", 0},
		{"-577014:32:22.77", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := parseClock(tt.input); got != tt.want {
			t.Errorf("parseClock(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseBlender(t *testing.T) {
	tests := []struct {
		line      string
		wantFrame int64
		wantOK    bool
	}{
		{"Fra:12 Mem:210.33M (Peak 250.10M) | Time:00:03.21 | Rendering 4 / 64 samples", 12, true},
		{"Fra:1", 1, true},
		{"Fra:x Mem:1M", 0, false},
	}

	for _, tt := range tests {
		u, ok := parseBlender(tt.line)
		if ok != tt.wantOK || u.Frame != tt.wantFrame {
			t.Errorf("parseBlender(%q) = %d, %v", tt.line, u.Frame, ok)
		}
		if ok && u.Source != "blender" {
			t.Errorf("Source = %q", u.Source)
		}
	}
}

func TestParseFFmpegStats(t *testing.T) {
	line := "frame=  120 fps= 30 q=-1.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.02x"

	u, ok := parseFFmpegStats(line)
	if !ok {
		t.Fatal("parseFFmpegStats() ok = false")
	}
	if u.Frame != 120 {
		t.Errorf("Frame = %d, want 120", u.Frame)
	}
	if u.FPS != 30 {
		t.Errorf("FPS = %v, want 30", u.FPS)
	}
	if u.OutTime != 4*time.Second {
		t.Errorf("OutTime = %v, want 4s", u.OutTime)
	}
	if u.Speed != 1.02 {
		t.Errorf("Speed = %v, want 1.02", u.Speed)
	}

	if _, ok := parseFFmpegStats("frame=abc fps=1"); ok {
		t.Error("non-numeric frame should not parse")
	}
}

func TestParser_HandleLine(t *testing.T) {
	next := &recordingHandler{}
	var updates []Update
	p := NewParser(next, func(u Update) { updates = append(updates, u) })

	lines := []string{
		"Blender 4.2.0",
		"Fra:1 Mem:10M | Rendering 1 / 64 samples",
		"Fra:1 Mem:10M | Rendering 2 / 64 samples",
		"Fra:2 Mem:10M | Rendering 1 / 64 samples",
		"Saved: '/tmp/frames/0002.png'",
	}
	for _, l := range lines {
		p.HandleLine(l)
	}

	if len(next.lines) != len(lines) {
		t.Errorf("forwarded %d lines, want %d", len(next.lines), len(lines))
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2 (one per frame)", len(updates))
	}
	if updates[0].Frame != 1 || updates[1].Frame != 2 {
		t.Errorf("frames = %d, %d", updates[0].Frame, updates[1].Frame)
	}

	last, ok := p.Last()
	if !ok || last.Frame != 2 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}

	n, processed := p.Stats()
	if n != 2 || processed != int64(len(lines)) {
		t.Errorf("Stats() = %d, %d", n, processed)
	}
}

func TestParser_CarriageReturns(t *testing.T) {
	var updates []Update
	p := NewParser(nil, func(u Update) { updates = append(updates, u) })

	// FFmpeg stats rewritten in place arrive as one line
	p.HandleLine("frame=   10 fps=0.0 time=00:00:00.40 speed=0.8x\r" +
		"frame=   25 fps= 24 time=00:00:01.00 speed=1.0x\r" +
		"frame=   50 fps= 25 time=00:00:02.00 speed=1.0x")

	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(updates))
	}
	if updates[2].Frame != 50 || updates[2].OutTime != 2*time.Second {
		t.Errorf("last update = %+v", updates[2])
	}
}

func TestParser_NilCallback(t *testing.T) {
	p := NewParser(nil, nil)
	p.HandleLine("Fra:3 Mem:1M")
	if last, ok := p.Last(); !ok || last.Frame != 3 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestParser_Concurrent(t *testing.T) {
	p := NewParser(&recordingHandler{}, func(Update) {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.HandleLine("Fra:1 Mem:1M")
				p.HandleLine("frame=2 time=00:00:01.00")
			}
		}()
	}
	wg.Wait()

	if _, processed := p.Stats(); processed != 1600 {
		t.Errorf("linesProcessed = %d, want 1600", processed)
	}
}
