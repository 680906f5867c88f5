package tools

import (
	"fmt"
	"os"
	"strings"
)

// FFmpegConcat joins media files listed in a concat demuxer list without
// re-encoding, optionally replacing the audio track.
type FFmpegConcat struct {
	// ListFile is a concat demuxer list (see WriteConcatList).
	ListFile string

	// Audio is an optional audio file mixed in as the only audio stream.
	Audio string

	// Output is the joined file. Existing files are overwritten.
	Output string

	// LogLevel is the ffmpeg log level. Defaults to "info".
	LogLevel string
}

// BuildArgs returns the ffmpeg command line.
func (f FFmpegConcat) BuildArgs() []string {
	logLevel := f.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", logLevel,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", f.ListFile,
	}

	// Replacement audio: video from the list, audio from the second input
	if f.Audio != "" {
		args = append(args,
			"-i", f.Audio,
			"-map", "0:v",
			"-map", "1:a",
			"-shortest",
		)
	}

	return append(args, "-c", "copy", f.Output)
}

// WriteConcatList writes a concat demuxer list naming files in order.
// Single quotes in paths are escaped the way the demuxer expects.
func WriteConcatList(path string, files []string) error {
	var b strings.Builder
	for _, file := range files {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(file, "'", `'\''`))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}
