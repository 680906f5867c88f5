package job

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/randomizedcoder/render-runner/internal/command"
	"github.com/randomizedcoder/render-runner/internal/config"
	"github.com/randomizedcoder/render-runner/internal/tools"
)

// ProgramPath returns the program a step runs: the step's own program when
// set, otherwise the configured path for its tool.
func ProgramPath(s Step, cfg *config.Config) (string, error) {
	if s.Program != "" {
		return s.Program, nil
	}

	switch s.Tool {
	case ToolBlender:
		return cfg.BlenderPath, nil
	case ToolConcat:
		return cfg.FFmpegPath, nil
	case ToolProbe:
		return cfg.FFprobePath, nil
	default:
		return "", fmt.Errorf("step %s: no program for tool %q", s.Name, s.Tool)
	}
}

// Builder returns the argument builder for a step.
func Builder(s Step) (command.ArgBuilder, error) {
	switch s.Tool {
	case ToolBlender:
		return tools.BlenderRender{
			BlendFile: s.BlendFile,
			OutputDir: s.OutputDir,
			Scene:     s.Scene,
			Engine:    s.Engine,
			Start:     s.Start,
			End:       s.End,
			Format:    s.Format,
		}, nil
	case ToolConcat:
		return tools.FFmpegConcat{
			ListFile: concatListPath(s),
			Audio:    s.Audio,
			Output:   s.Output,
		}, nil
	case ToolProbe:
		return tools.FFprobe{Input: s.Input}, nil
	case ToolExec:
		return tools.Generic{Args: s.Args}, nil
	default:
		return nil, fmt.Errorf("step %s: unknown tool %q", s.Name, s.Tool)
	}
}

// Build creates the command for a step. It has no side effects; see Prepare.
func Build(s Step, cfg *config.Config, opts ...command.Option) (*command.Command, error) {
	program, err := ProgramPath(s, cfg)
	if err != nil {
		return nil, err
	}
	args, err := Builder(s)
	if err != nil {
		return nil, err
	}

	opts = append([]command.Option{command.WithGracePeriod(cfg.GracePeriod)}, opts...)
	return command.New(program, args, opts...), nil
}

// Prepare creates the files and folders a step expects to exist before it
// runs: the blender output folder and the concat list.
func Prepare(s Step) error {
	switch s.Tool {
	case ToolBlender:
		if s.OutputDir != "" {
			if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
				return fmt.Errorf("step %s: create output dir: %w", s.Name, err)
			}
		}
	case ToolConcat:
		if len(s.Inputs) > 0 {
			if err := tools.WriteConcatList(concatListPath(s), s.Inputs); err != nil {
				return fmt.Errorf("step %s: %w", s.Name, err)
			}
		}
	}
	return nil
}

// concatListPath is list_file when given, otherwise a list next to the output.
func concatListPath(s Step) string {
	if s.ListFile != "" {
		return s.ListFile
	}
	return filepath.Join(filepath.Dir(s.Output), filepath.Base(s.Output)+".list.txt")
}
