// Package tools assembles argument vectors for the external programs that
// make up a render pipeline.
package tools

import (
	"path/filepath"
	"strconv"
)

// Render engines accepted by blender's -E flag.
const (
	EngineCycles = "CYCLES"
	EngineEevee  = "BLENDER_EEVEE_NEXT"
)

// FramePattern is appended to the output directory; blender replaces the
// hashes with the zero-padded frame number.
const FramePattern = "####"

// BlenderRender renders a frame range of a blend file in background mode.
type BlenderRender struct {
	// BlendFile is the .blend file to render.
	BlendFile string

	// OutputDir receives one image per frame.
	OutputDir string

	// Scene overrides the active scene when set.
	Scene string

	// Engine overrides the render engine when set.
	Engine string

	// Start and End bound the frame range (inclusive). Both zero renders
	// the range stored in the blend file.
	Start int
	End   int

	// Format overrides the output image format (PNG, OPEN_EXR, ...).
	Format string
}

// BuildArgs returns the blender command line. Options appear before -a,
// which must be last because blender processes arguments in order.
func (b BlenderRender) BuildArgs() []string {
	args := []string{"-b", b.BlendFile}

	if b.Scene != "" {
		args = append(args, "-S", b.Scene)
	}
	if b.Engine != "" {
		args = append(args, "-E", b.Engine)
	}
	if b.OutputDir != "" {
		args = append(args, "-o", filepath.Join(b.OutputDir, FramePattern))
	}
	if b.Format != "" {
		args = append(args, "-F", b.Format)
	}
	if b.Start != 0 || b.End != 0 {
		args = append(args,
			"-s", strconv.Itoa(b.Start),
			"-e", strconv.Itoa(b.End),
		)
	}

	return append(args, "-a")
}

// Frames returns the number of frames in the range, or 0 when the range is
// taken from the blend file.
func (b BlenderRender) Frames() int {
	if b.Start == 0 && b.End == 0 || b.End < b.Start {
		return 0
	}
	return b.End - b.Start + 1
}
