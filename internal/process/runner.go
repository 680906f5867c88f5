// Package process starts external programs and supervises them until they
// exit or are cancelled.
package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultGracePeriod is how long a cancelled process group gets between
// SIGTERM and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

var (
	// ErrLaunch reports that the operating system could not start a program.
	ErrLaunch = errors.New("process launch failed")

	// ErrCancelled reports that a run was cancelled before the program exited.
	ErrCancelled = errors.New("process cancelled")
)

// LaunchError wraps the cause of a failed start. It matches both ErrLaunch
// and the underlying cause with errors.Is.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunch, e.Err}
}

// cancelError matches ErrCancelled and the context error that caused it.
type cancelError struct {
	cause error
}

func (e *cancelError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCancelled, e.cause)
}

func (e *cancelError) Unwrap() []error {
	return []error{ErrCancelled, e.cause}
}

// Capture selects which standard streams are collected.
type Capture struct {
	Stdout bool
	Stderr bool
}

var (
	// CaptureNone discards both streams.
	CaptureNone = Capture{}

	// CaptureAll collects stdout and stderr.
	CaptureAll = Capture{Stdout: true, Stderr: true}
)

// Result captures the outcome of a process that exited on its own.
// It is never produced for a cancelled run.
type Result struct {
	ExitCode  int
	Stdout    string // empty unless captured
	Stderr    string // empty unless captured
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns how long the process ran.
func (r Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Success reports whether the process exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Options tunes a single launch.
type Options struct {
	// GracePeriod between SIGTERM and SIGKILL on cancellation.
	// Defaults to DefaultGracePeriod when zero.
	GracePeriod time.Duration

	// OnStdoutLine and OnStderrLine receive captured output line by line
	// while the process runs. Only called for captured streams.
	OnStdoutLine func(line string)
	OnStderrLine func(line string)
}

func (o Options) gracePeriod() time.Duration {
	if o.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return o.GracePeriod
}

// CommandString returns the command line that cmd would run (for debugging).
func CommandString(cmd *exec.Cmd) string {
	if cmd == nil {
		return ""
	}
	if len(cmd.Args) <= 1 {
		return cmd.Path
	}
	return cmd.Path + " " + strings.Join(cmd.Args[1:], " ")
}

// LookPath resolves program the way Start will. A failure is returned as a
// *LaunchError so callers can report it before anything runs.
func LookPath(program string) (string, error) {
	path, err := exec.LookPath(program)
	if err != nil {
		return "", &LaunchError{Program: program, Err: err}
	}
	return path, nil
}
