// Package job loads render pipelines from YAML and runs their steps in order.
package job

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tool names accepted in a step's "tool" field.
const (
	ToolBlender = "blender"
	ToolConcat  = "ffmpeg-concat"
	ToolProbe   = "ffprobe"
	ToolExec    = "exec"
)

// Job is an ordered list of steps.
type Job struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one tool invocation. Which fields apply depends on Tool.
type Step struct {
	Name string `yaml:"name"`
	Tool string `yaml:"tool"`

	// Program overrides the configured path for the tool. Required for exec.
	Program string `yaml:"program,omitempty"`

	// blender
	BlendFile string `yaml:"blend_file,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
	Scene     string `yaml:"scene,omitempty"`
	Engine    string `yaml:"engine,omitempty"`
	Format    string `yaml:"format,omitempty"`
	Start     int    `yaml:"start,omitempty"`
	End       int    `yaml:"end,omitempty"`

	// ffmpeg-concat
	Inputs   []string `yaml:"inputs,omitempty"`
	ListFile string   `yaml:"list_file,omitempty"`
	Audio    string   `yaml:"audio,omitempty"`
	Output   string   `yaml:"output,omitempty"`

	// ffprobe
	Input string `yaml:"input,omitempty"`

	// exec
	Args []string `yaml:"args,omitempty"`
}

// Load reads and validates a job file. Unknown keys are rejected.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}
	return j, nil
}

// Parse decodes and validates a job document.
func Parse(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var j Job
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Validate checks that every step names a known tool and carries the
// fields that tool needs.
func (j *Job) Validate() error {
	if len(j.Steps) == 0 {
		return errors.New("job has no steps")
	}

	var errs []error
	seen := make(map[string]bool, len(j.Steps))
	for i, s := range j.Steps {
		label := s.Name
		if label == "" {
			errs = append(errs, fmt.Errorf("step %d: name is required", i+1))
			label = fmt.Sprintf("#%d", i+1)
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("step %s: duplicate name", s.Name))
		}
		seen[s.Name] = true

		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}

func (s Step) validate() error {
	switch s.Tool {
	case ToolBlender:
		if s.BlendFile == "" {
			return errors.New("blend_file is required")
		}
		if s.End < s.Start {
			return fmt.Errorf("end frame %d before start frame %d", s.End, s.Start)
		}
	case ToolConcat:
		if s.Output == "" {
			return errors.New("output is required")
		}
		if len(s.Inputs) == 0 && s.ListFile == "" {
			return errors.New("inputs or list_file is required")
		}
	case ToolProbe:
		if s.Input == "" {
			return errors.New("input is required")
		}
	case ToolExec:
		if s.Program == "" {
			return errors.New("program is required")
		}
	case "":
		return errors.New("tool is required")
	default:
		return fmt.Errorf("unknown tool %q", s.Tool)
	}
	return nil
}
