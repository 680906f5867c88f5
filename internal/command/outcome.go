package command

import (
	"time"

	"github.com/randomizedcoder/render-runner/internal/process"
)

// State classifies how a run ended.
type State string

const (
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
	StateLaunchFailed State = "launch_failed"
)

func stateFor(exitCode int) State {
	if exitCode == 0 {
		return StateSucceeded
	}
	return StateFailed
}

// Outcome is an immutable record of one completed run.
type Outcome struct {
	Program  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	State    State
}

func newOutcome(program string, res process.Result) Outcome {
	return Outcome{
		Program:  program,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration(),
		State:    stateFor(res.ExitCode),
	}
}
