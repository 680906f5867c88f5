// Package command defines an external tool invocation: a program path plus
// an argument builder, run under supervision with its outcome recorded.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randomizedcoder/render-runner/internal/process"
	"github.com/randomizedcoder/render-runner/internal/report"
)

// ArgBuilder produces the argument vector for one tool. Each element is
// passed to the program verbatim; no shell quoting is applied.
type ArgBuilder interface {
	BuildArgs() []string
}

// LineHandler receives captured output line by line.
type LineHandler interface {
	HandleLine(line string)
}

// Observer is notified when a command starts and finishes.
type Observer interface {
	CommandStarted(program string)
	CommandFinished(program string, state State, d time.Duration)
}

// Command is one external program invocation.
type Command struct {
	programPath string
	name        string
	args        ArgBuilder

	logger   *slog.Logger
	observer Observer
	grace    time.Duration
	stdout   LineHandler
	stderr   LineHandler

	mu      sync.Mutex
	seq     uint64
	outcome *Outcome

	reportOnce sync.Once
	reportName string
}

// Option configures a Command.
type Option func(*Command)

// WithLogger sets the diagnostic logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Command) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer for start and finish notifications.
func WithObserver(o Observer) Option {
	return func(c *Command) { c.observer = o }
}

// WithGracePeriod sets how long a cancelled process gets before it is killed.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Command) { c.grace = d }
}

// WithOutputHandler streams captured stdout and stderr lines to the given
// handlers while the program runs. Either may be nil.
func WithOutputHandler(stdout, stderr LineHandler) Option {
	return func(c *Command) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// New creates a command for programPath. args may be nil for a program
// that takes no arguments.
func New(programPath string, args ArgBuilder, opts ...Option) *Command {
	c := &Command{
		programPath: programPath,
		name:        programName(programPath),
		args:        args,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func programName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name returns the program file name without directory or extension.
func (c *Command) Name() string {
	return c.name
}

// ProgramPath returns the path the command was created with.
func (c *Command) ProgramPath() string {
	return c.programPath
}

// Args returns the argument vector from the builder.
func (c *Command) Args() []string {
	if c.args == nil {
		return nil
	}
	return c.args.BuildArgs()
}

// Process builds a ready-to-start process descriptor.
func (c *Command) Process(ctx context.Context) *exec.Cmd {
	args := c.Args()

	c.logger.InfoContext(ctx, "command_running", "command", c.name)
	c.logger.DebugContext(ctx, "command_line",
		"command", c.name,
		"args", strings.Join(args, " "),
	)

	return exec.Command(c.programPath, args...)
}

// Launch starts the program without waiting for it. Any previously stored
// outcome is cleared. The exit is logged by a continuation on the handle;
// the outcome is only stored by Run, Execute and Capture.
func (c *Command) Launch(ctx context.Context, capture process.Capture) (*process.Handle, error) {
	h, _, err := c.launch(ctx, capture)
	return h, err
}

func (c *Command) launch(ctx context.Context, capture process.Capture) (*process.Handle, uint64, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.outcome = nil
	c.mu.Unlock()

	opts := process.Options{GracePeriod: c.grace}
	if c.stdout != nil {
		opts.OnStdoutLine = c.stdout.HandleLine
	}
	if c.stderr != nil {
		opts.OnStderrLine = c.stderr.HandleLine
	}

	if err := ctx.Err(); err != nil {
		// Nothing starts; the handle resolves as cancelled right away.
		c.logger.DebugContext(ctx, "command_not_started", "command", c.name, "reason", err)
		h, err := process.Start(ctx, exec.Command(c.programPath), capture, opts)
		return h, seq, err
	}

	cmd := c.Process(ctx)
	if c.observer != nil {
		c.observer.CommandStarted(c.name)
	}

	h, err := process.Start(ctx, cmd, capture, opts)
	if err != nil {
		c.logger.ErrorContext(ctx, "command_launch_failed",
			"command", c.name,
			"path", c.programPath,
			"error", err,
		)
		if c.observer != nil {
			c.observer.CommandFinished(c.name, StateLaunchFailed, 0)
		}
		return nil, seq, err
	}

	h.Then(c.onExit)
	return h, seq, nil
}

// onExit logs the exit and notifies the observer. It runs as a continuation
// and is not ordered relative to Wait returning.
func (c *Command) onExit(res process.Result, err error) {
	if err != nil {
		c.logger.Warn("command_cancelled", "command", c.name, "reason", err)
		if c.observer != nil {
			c.observer.CommandFinished(c.name, StateCancelled, 0)
		}
		return
	}

	c.logger.Info("command_exited",
		"command", c.name,
		"exit_code", res.ExitCode,
		"duration", res.Duration(),
	)
	if c.observer != nil {
		c.observer.CommandFinished(c.name, stateFor(res.ExitCode), res.Duration())
	}
}

// run launches the program, waits for it and stores the outcome of a
// normal exit.
func (c *Command) run(ctx context.Context, capture process.Capture) (process.Result, error) {
	h, seq, err := c.launch(ctx, capture)
	if err != nil {
		return process.Result{}, err
	}

	res, err := h.Wait()
	if err != nil {
		return process.Result{}, err
	}

	c.store(seq, newOutcome(c.name, res))
	return res, nil
}

// store records o unless a newer run has started since seq was issued.
func (c *Command) store(seq uint64, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == seq {
		c.outcome = &o
	}
}

// Run captures both streams and reports whether the program exited with
// code 0. Cancellation and non-zero exits return false with a nil error;
// the error is only set when the program could not be launched.
func (c *Command) Run(ctx context.Context) (bool, error) {
	res, err := c.run(ctx, process.CaptureAll)
	if err != nil {
		if errors.Is(err, process.ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	return res.Success(), nil
}

// Execute runs the program without capturing output and returns its exit
// code. Cancellation returns an error matching process.ErrCancelled.
func (c *Command) Execute(ctx context.Context) (int, error) {
	res, err := c.run(ctx, process.CaptureNone)
	if err != nil {
		return 0, err
	}
	return res.ExitCode, nil
}

// Capture runs the program collecting the selected streams.
// Cancellation returns an error matching process.ErrCancelled.
func (c *Command) Capture(ctx context.Context, stdout, stderr bool) (process.Result, error) {
	return c.run(ctx, process.Capture{Stdout: stdout, Stderr: stderr})
}

// Outcome returns the result of the last run that exited normally.
// ok is false if the command never completed or its latest run was cancelled
// or is still in progress.
func (c *Command) Outcome() (o Outcome, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// ReportFileName returns "<name>_<random>.txt". The name is generated on
// first use and reused for the lifetime of the command.
func (c *Command) ReportFileName() string {
	c.reportOnce.Do(func() {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		c.reportName = c.name + "_" + suffix + ".txt"
	})
	return c.reportName
}

// SaveReport appends the last outcome to the command's report file in folder
// and returns the file path. A command that never ran writes an empty record.
func (c *Command) SaveReport(folder string) (string, error) {
	o, _ := c.Outcome()
	path := filepath.Join(folder, c.ReportFileName())

	err := report.Append(path, report.Record{
		Program:  c.name,
		ExitCode: o.ExitCode,
		Stderr:   o.Stderr,
		Stdout:   o.Stdout,
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// String returns "<Type>: <name> <args>". It never panics.
func (c *Command) String() (s string) {
	typeName := builderType(c.args)
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%s: %s <args unavailable: %v>", typeName, c.name, r)
		}
	}()
	return strings.TrimRight(fmt.Sprintf("%s: %s %s", typeName, c.name, strings.Join(c.Args(), " ")), " ")
}

func builderType(b ArgBuilder) string {
	if b == nil {
		return "Command"
	}
	t := fmt.Sprintf("%T", b)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimLeft(t, "*")
}
