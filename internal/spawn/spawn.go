// Package spawn runs external programs with their output streamed through
// line sinks, reporting a non-zero exit status as an error.
package spawn

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gcornut/automation/internal/executor"
	"github.com/gcornut/automation/internal/logging"
)

// Sink receives a block of text plus optional trailing values.
// (*logging.Logger).Out and Err satisfy it.
type Sink func(text string, extra ...any)

// ExitError reports a child that exited with a non-zero status or was
// killed by a signal.
type ExitError struct {
	Program string
	Code    int
	// Signal is set when the child did not exit on its own.
	Signal os.Signal
}

func (e *ExitError) Error() string {
	if e.Signal != nil {
		return fmt.Sprintf("%s terminated by signal %v", e.Program, e.Signal)
	}
	return fmt.Sprintf("%s exited with status %d", e.Program, e.Code)
}

// Options configure a single invocation.
type Options struct {
	// Env is merged over the inherited environment.
	Env map[string]string
	Out Sink
	Err Sink
}

func (o Options) sinks() (Sink, Sink) {
	out, errSink := o.Out, o.Err
	if out == nil || errSink == nil {
		plain := logging.New(nil)
		if out == nil {
			out = plain.Out
		}
		if errSink == nil {
			errSink = plain.Err
		}
	}
	return out, errSink
}

// Runner launches programs through an Executor. It applies no timeout and
// never retries: a hung child blocks Run until it exits.
type Runner struct {
	exec   executor.Executor
	dryRun bool
}

// New creates a Runner. With dryRun set, Run only echoes invocations.
func New(exec executor.Executor, dryRun bool) *Runner {
	if exec == nil {
		exec = executor.Default()
	}
	return &Runner{exec: exec, dryRun: dryRun}
}

// DryRun reports whether the Runner skips spawning.
func (r *Runner) DryRun() bool {
	return r.dryRun
}

// Run echoes the invocation, starts program and forwards its output line
// by line until it exits.
func (r *Runner) Run(program string, args []string, opts Options) error {
	out, errSink := opts.sinks()

	out(strings.TrimSpace(program + " " + strings.Join(args, " ")))
	if r.dryRun {
		return nil
	}

	stdout := newLineWriter(out)
	stderr := newLineWriter(errSink)

	proc, err := r.exec.Start(executor.Command{
		Program: program,
		Args:    args,
		Env:     opts.Env,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if err != nil {
		return fmt.Errorf("starting %s: %w", program, err)
	}

	code, err := proc.Wait()
	stdout.Flush()
	stderr.Flush()
	var sigErr *executor.SignalError
	if errors.As(err, &sigErr) {
		return &ExitError{Program: program, Code: code, Signal: sigErr.Signal}
	}
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", program, err)
	}
	slog.Debug("process exited", "program", program, "code", code)

	if code != 0 {
		return &ExitError{Program: program, Code: code}
	}
	out(program, "finished")
	return nil
}
