package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/randomizedcoder/render-runner/internal/command"
	"github.com/randomizedcoder/render-runner/internal/config"
	"github.com/randomizedcoder/render-runner/internal/history"
	"github.com/randomizedcoder/render-runner/internal/logging"
	"github.com/randomizedcoder/render-runner/internal/metrics"
	"github.com/randomizedcoder/render-runner/internal/process"
	"github.com/randomizedcoder/render-runner/internal/progress"
	"github.com/randomizedcoder/render-runner/internal/stats"
	"github.com/randomizedcoder/render-runner/internal/tools"
)

// ErrStepFailed reports that a step exited with a non-zero code.
var ErrStepFailed = errors.New("step failed")

// Step results reported to metrics and events.
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultCancelled = "cancelled"
	ResultSkipped   = "skipped"
)

// EventType identifies a runner event.
type EventType int

const (
	StepStarted EventType = iota
	StepProgress
	StepFinished
)

// Event describes progress through a job.
type Event struct {
	Type     EventType
	Index    int
	Step     string
	Program  string
	Result   string // set for StepFinished
	ExitCode int
	Duration time.Duration
	Report   string

	// Set for StepProgress. Frames is 0 when the total is unknown.
	Frame  int64
	Frames int
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Program  string
	State    command.State
	ExitCode int
	Duration time.Duration
	Report   string
	Media    *tools.MediaInfo // ffprobe steps only
}

// Summary is the outcome of a whole job.
type Summary struct {
	Job            string
	Steps          []StepResult
	Duration       time.Duration
	Succeeded      bool
	Cancelled      bool
	FailedStep     string
	FailedExitCode int
	Reports        []string
}

// Runner executes the steps of a job one after another.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	history  *history.Store
	recorder *stats.Recorder
	metrics  *metrics.Collector
	onEvent  func(Event)
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records every step outcome in store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithRecorder feeds step durations to rec.
func WithRecorder(rec *stats.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithMetrics reports commands and steps to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithEventHandler receives step events. Started and finished events are
// delivered from the goroutine calling Run; progress events arrive from the
// goroutines reading tool output, so fn must be safe for concurrent use.
func WithEventHandler(fn func(Event)) Option {
	return func(r *Runner) { r.onEvent = fn }
}

// NewRunner creates a runner using cfg for tool paths, grace period and
// the report folder.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the steps of j in order and stops at the first step that
// does not succeed. The returned error is nil only when every step exited
// with code 0. A failed exit matches ErrStepFailed, a cancelled run matches
// process.ErrCancelled and a program that could not start matches
// process.ErrLaunch. The summary is filled in either way.
func (r *Runner) Run(ctx context.Context, j *Job) (Summary, error) {
	start := time.Now()
	sum := Summary{Job: j.Name, Succeeded: true}

	r.logger.Info("job_started", "job", j.Name, "steps", len(j.Steps))

	var runErr error
	for i, step := range j.Steps {
		if runErr != nil {
			r.stepCompleted(ResultSkipped)
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("step %s: %w", step.Name, errors.Join(process.ErrCancelled, err))
			sum.Cancelled = true
			sum.Succeeded = false
			r.stepCompleted(ResultSkipped)
			continue
		}

		res, err := r.runStep(ctx, j.Name, i, step)
		sum.Steps = append(sum.Steps, res)
		if res.Report != "" {
			sum.Reports = append(sum.Reports, res.Report)
		}
		if err != nil {
			runErr = err
			sum.Succeeded = false
			sum.FailedStep = step.Name
			sum.FailedExitCode = res.ExitCode
			sum.Cancelled = res.State == command.StateCancelled
		}
	}

	sum.Duration = time.Since(start)
	r.logger.Info("job_finished",
		"job", j.Name,
		"succeeded", sum.Succeeded,
		"duration", sum.Duration,
	)
	return sum, runErr
}

func (r *Runner) runStep(ctx context.Context, jobName string, index int, step Step) (StepResult, error) {
	res := StepResult{Name: step.Name}

	program, err := ProgramPath(step, r.cfg)
	if err != nil {
		return r.finish(jobName, index, step, res, command.StateLaunchFailed, err)
	}

	stdout := logging.NewOutputHandler(step.Name, "stdout", r.logger, r.cfg.Verbose)
	stderr := logging.NewOutputHandler(step.Name, "stderr", r.logger, r.cfg.Verbose)

	name := strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
	frames := 0
	if step.Tool == ToolBlender {
		frames = tools.BlenderRender{Start: step.Start, End: step.End}.Frames()
	}
	onProgress := func(u progress.Update) {
		r.emit(Event{
			Type:    StepProgress,
			Index:   index,
			Step:    step.Name,
			Program: name,
			Frame:   u.Frame,
			Frames:  frames,
		})
	}

	opts := []command.Option{
		command.WithLogger(r.logger.With("step", step.Name)),
		command.WithOutputHandler(
			progress.NewParser(stdout, onProgress),
			progress.NewParser(stderr, onProgress),
		),
	}
	if r.metrics != nil {
		opts = append(opts, command.WithObserver(r.metrics))
	}

	cmd, err := Build(step, r.cfg, opts...)
	if err != nil {
		return r.finish(jobName, index, step, res, command.StateLaunchFailed, err)
	}
	res.Program = cmd.Name()

	if err := Prepare(step); err != nil {
		return r.finish(jobName, index, step, res, command.StateLaunchFailed, err)
	}

	r.emit(Event{Type: StepStarted, Index: index, Step: step.Name, Program: res.Program})
	r.logger.Info("step_started", "step", step.Name, "tool", step.Tool, "program", program)

	started := time.Now()
	ok, err := cmd.Run(ctx)
	if err != nil {
		res.Duration = time.Since(started)
		return r.finish(jobName, index, step, res, command.StateLaunchFailed, fmt.Errorf("step %s: %w", step.Name, err))
	}

	o, completed := cmd.Outcome()
	if !completed {
		res.Duration = time.Since(started)
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return r.finish(jobName, index, step, res, command.StateCancelled,
			fmt.Errorf("step %s: %w", step.Name, errors.Join(process.ErrCancelled, cause)))
	}

	res.ExitCode = o.ExitCode
	res.Duration = o.Duration

	if ok {
		if step.Tool == ToolProbe {
			r.parseProbe(step, o, &res)
		}
		return r.finish(jobName, index, step, res, command.StateSucceeded, nil)
	}

	r.logger.Error("step_failed",
		"step", step.Name,
		"exit_code", o.ExitCode,
		"last_lines", stderr.RecentLines(5),
		"error_counts", stderr.CountErrors(),
	)

	path, err := cmd.SaveReport(r.cfg.ReportDir)
	if err != nil {
		r.logger.Error("report_write_failed", "step", step.Name, "error", err)
	} else {
		res.Report = path
		r.logger.Info("report_saved", "step", step.Name, "path", path)
	}

	return r.finish(jobName, index, step, res, command.StateFailed,
		fmt.Errorf("step %s: exit code %d: %w", step.Name, o.ExitCode, ErrStepFailed))
}

// parseProbe attaches ffprobe's findings to a successful probe step.
func (r *Runner) parseProbe(step Step, o command.Outcome, res *StepResult) {
	info, err := tools.ParseProbe([]byte(o.Stdout))
	if err != nil {
		r.logger.Warn("probe_parse_failed", "step", step.Name, "error", err)
		return
	}
	res.Media = &info
	r.logger.Info("probe_result",
		"step", step.Name,
		"input", step.Input,
		"format", info.FormatName,
		"duration", info.Duration,
		"video_streams", info.Video,
		"audio_streams", info.Audio,
	)
}

// finish records a step outcome everywhere it is tracked.
func (r *Runner) finish(jobName string, index int, step Step, res StepResult, state command.State, err error) (StepResult, error) {
	res.State = state
	if state == command.StateLaunchFailed {
		res.ExitCode = -1
		r.logger.Error("step_launch_failed", "step", step.Name, "error", err)
	}

	result := resultFor(state)
	r.stepCompleted(result)

	if r.recorder != nil && res.Program != "" {
		d := res.Duration
		if state != command.StateSucceeded && state != command.StateFailed {
			d = 0
		}
		r.recorder.Observe(res.Program, string(state), d)
	}

	if r.history != nil {
		entry := &history.Entry{
			Job:        jobName,
			Step:       step.Name,
			Program:    res.Program,
			State:      string(state),
			ExitCode:   res.ExitCode,
			FinishedAt: time.Now(),
			DurationMs: res.Duration.Milliseconds(),
			ReportPath: res.Report,
		}
		if herr := r.history.Record(entry); herr != nil {
			r.logger.Warn("history_record_failed", "step", step.Name, "error", herr)
		}
	}

	r.logger.Info("step_finished",
		"step", step.Name,
		"result", result,
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	r.emit(Event{
		Type:     StepFinished,
		Index:    index,
		Step:     step.Name,
		Program:  res.Program,
		Result:   result,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Report:   res.Report,
	})

	return res, err
}

func (r *Runner) stepCompleted(result string) {
	if r.metrics != nil {
		r.metrics.StepCompleted(result)
	}
}

func (r *Runner) emit(e Event) {
	if r.onEvent != nil {
		r.onEvent(e)
	}
}

func resultFor(state command.State) string {
	switch state {
	case command.StateSucceeded:
		return ResultOK
	case command.StateCancelled:
		return ResultCancelled
	default:
		return ResultFailed
	}
}
