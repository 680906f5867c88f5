package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Handle is the pending outcome of a started process.
// Exactly one of a Result (normal exit) or an error is delivered.
type Handle struct {
	pid    int
	done   chan struct{}
	result Result
	err    error
}

// Pid returns the operating system process id, or 0 if the process never started.
func (h *Handle) Pid() int {
	return h.pid
}

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process has exited or been cancelled.
// A cancelled run returns an error matching ErrCancelled.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}

// Then runs fn in its own goroutine once the outcome is known. Continuations
// are not ordered relative to Wait returning, and a panic in fn is recovered.
func (h *Handle) Then(fn func(Result, error)) {
	go func() {
		<-h.done
		defer func() { _ = recover() }()
		fn(h.result, h.err)
	}()
}

func (h *Handle) resolve(res Result, err error) {
	h.result = res
	h.err = err
	close(h.done)
}

// Start launches cmd without blocking. cmd must not have been started and
// must not have Stdout or Stderr set for streams selected by capture.
//
// A launch failure is returned as a *LaunchError. If ctx is already done the
// process is not started and the returned handle resolves as cancelled.
func Start(ctx context.Context, cmd *exec.Cmd, capture Capture, opts Options) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}

	if err := ctx.Err(); err != nil {
		h.resolve(Result{}, &cancelError{cause: err})
		return h, nil
	}

	configureProcAttr(cmd)

	var stdout, stderr *lineWriter
	if capture.Stdout {
		stdout = newLineWriter(opts.OnStdoutLine)
		cmd.Stdout = stdout
	}
	if capture.Stderr {
		stderr = newLineWriter(opts.OnStderrLine)
		cmd.Stderr = stderr
	}

	// Bounds how long Wait blocks on pipes held open by orphaned grandchildren
	cmd.WaitDelay = opts.gracePeriod()

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Program: cmd.Path, Err: err}
	}
	h.pid = cmd.Process.Pid

	waitDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()

	go func() {
		select {
		case <-waitDone:
		case <-ctx.Done():
			select {
			case <-waitDone:
				// Exited before cancellation was observed
			default:
				terminate(cmd.Process, opts.gracePeriod(), waitDone)
				<-waitDone
				h.resolve(Result{}, &cancelError{cause: ctx.Err()})
				return
			}
		}

		res := Result{
			ExitCode:  exitCode(cmd.ProcessState, waitErr),
			StartTime: startTime,
			EndTime:   time.Now(),
		}
		if stdout != nil {
			res.Stdout = stdout.String()
		}
		if stderr != nil {
			res.Stderr = stderr.String()
		}

		if cmd.ProcessState == nil {
			h.resolve(Result{}, waitErr)
			return
		}
		h.resolve(res, nil)
	}()

	return h, nil
}

// Run starts cmd and waits for it.
func Run(ctx context.Context, cmd *exec.Cmd, capture Capture, opts Options) (Result, error) {
	h, err := Start(ctx, cmd, capture, opts)
	if err != nil {
		return Result{}, err
	}
	return h.Wait()
}

// terminate stops the process and everything it spawned: SIGTERM to the
// process group, SIGKILL after grace, then any descendant that escaped the group.
// The process table is walked only after SIGTERM has gone out, so a slow
// lookup never delays the signal.
func terminate(p *os.Process, grace time.Duration, exited <-chan struct{}) {
	_ = interruptTree(p)

	tree := descendants(p.Pid)

	select {
	case <-exited:
	case <-time.After(grace):
		_ = killTree(p)
	}

	killStragglers(tree)
}

// exitCode extracts the exit code from a finished process.
func exitCode(state *os.ProcessState, waitErr error) int {
	if state == nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			state = exitErr.ProcessState
		}
	}
	if state == nil {
		if waitErr == nil {
			return 0
		}
		// Unknown error, assume exit code 1
		return 1
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			// Signal exit: 128 + signal number
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}
	return state.ExitCode()
}

// maxPartialLine bounds an unterminated line held for the callback. Longer
// lines are delivered in pieces.
const maxPartialLine = 64 * 1024

// lineWriter collects everything written to it and hands complete lines to
// a callback as they arrive. A bare carriage return ends a line too, so
// progress output that rewrites itself in place is seen while it happens.
type lineWriter struct {
	mu      sync.Mutex
	buf     []byte
	partial []byte
	afterCR bool // last terminator was '\r'; a following '\n' is part of it
	onLine  func(string)
}

func newLineWriter(onLine func(string)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	if w.onLine == nil {
		return len(p), nil
	}

	w.partial = append(w.partial, p...)
	start := 0
	for i, c := range w.partial {
		if c != '\n' && c != '\r' {
			continue
		}
		if i == start && w.afterCR {
			// "\r\n", or a run of "\r" with nothing between
			w.afterCR = c == '\r'
			start = i + 1
			continue
		}
		w.emit(string(w.partial[start:i]))
		w.afterCR = c == '\r'
		start = i + 1
	}
	w.partial = w.partial[start:]

	if len(w.partial) > maxPartialLine {
		w.emit(string(w.partial))
		w.partial = nil
		w.afterCR = false
	}
	return len(p), nil
}

// String returns all output; a trailing unterminated line is delivered to
// the callback first.
func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
	w.afterCR = false
	return string(w.buf)
}

func (w *lineWriter) emit(line string) {
	defer func() { _ = recover() }()
	w.onLine(line)
}
