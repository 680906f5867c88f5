// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/randomizedcoder/render-runner/internal/process"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects what RunAll checks.
type Options struct {
	// Tools maps tool names to program paths. Only tools the job uses
	// need to be listed.
	Tools map[string]string

	// Dirs must exist (or be creatable) and accept new files.
	Dirs []string
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, len(opts.Tools)+len(opts.Dirs)+1),
		Passed: true,
	}

	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	// Stable order for output
	names := make([]string, 0, len(opts.Tools))
	for name := range opts.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		add(checkTool(name, opts.Tools[name]))
	}
	for _, dir := range opts.Dirs {
		add(checkWritable(dir))
	}
	add(checkFileDescriptors())

	return result
}

// checkTool verifies a program can be resolved.
func checkTool(name, path string) Check {
	resolved, err := process.LookPath(path)
	if err != nil {
		return Check{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("found at %s", resolved),
	}
}

// checkWritable verifies files can be created in dir.
func checkWritable(dir string) Check {
	name := "writable " + dir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Passed: false, Message: err.Error()}
	}

	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{Name: name, Passed: false, Message: err.Error()}
	}
	f.Close()
	os.Remove(f.Name())

	return Check{Name: name, Passed: true, Message: "ok"}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "ffmpeg", "ffprobe":
		return "install ffmpeg (apt install ffmpeg / brew install ffmpeg) or set ffmpeg_path"
	case "blender":
		return "install blender or set blender_path in the settings file"
	default:
		return "check the path and permissions"
	}
}
