package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/randomizedcoder/render-runner/internal/command"
)

// FFprobe reads container metadata of a media file as JSON.
type FFprobe struct {
	Input string
}

// BuildArgs returns the ffprobe command line.
func (p FFprobe) BuildArgs() []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		p.Input,
	}
}

// ProbeResult represents the output of ffprobe -show_format -show_streams.
type ProbeResult struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

// Format is the container section of the probe output.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	NumStreams int    `json:"nb_streams"`
}

// Stream is one elementary stream of the probe output.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// MediaInfo holds parsed information about a probed file.
type MediaInfo struct {
	FormatName string
	Duration   time.Duration
	Size       int64
	BitRate    int64
	Video      int
	Audio      int
}

// Probe runs cmd, which must be built from an FFprobe, and parses its output.
// Stderr is captured too so that a failed probe leaves a useful report.
func Probe(ctx context.Context, cmd *command.Command) (MediaInfo, error) {
	res, err := cmd.Capture(ctx, true, true)
	if err != nil {
		return MediaInfo{}, err
	}
	if res.ExitCode != 0 {
		return MediaInfo{}, fmt.Errorf("ffprobe exited with code %d", res.ExitCode)
	}
	return ParseProbe([]byte(res.Stdout))
}

// ParseProbe converts ffprobe JSON output to MediaInfo.
func ParseProbe(output []byte) (MediaInfo, error) {
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return MediaInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := MediaInfo{FormatName: result.Format.FormatName}

	// Missing or "N/A" fields stay zero
	if secs, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	info.Size, _ = strconv.ParseInt(result.Format.Size, 10, 64)
	info.BitRate, _ = strconv.ParseInt(result.Format.BitRate, 10, 64)

	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			info.Video++
		case "audio":
			info.Audio++
		}
	}

	return info, nil
}
