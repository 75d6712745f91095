// Package executor provides an abstraction for starting processes.
package executor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
)

// Command describes one program invocation.
type Command struct {
	Program string
	Args    []string
	// Env is merged over the inherited environment, replacing variables
	// of the same name.
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// Process represents a running process.
type Process interface {
	// Wait blocks until the process exits and its output has been fully
	// copied. Returns 0 for success, non-zero for failure. A process killed
	// by a signal reports -1 and a *SignalError.
	Wait() (exitCode int, err error)
}

// SignalError is returned by Wait when a signal terminated the process.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("terminated by signal %v", e.Signal)
}

// Executor starts processes.
type Executor interface {
	Start(cmd Command) (Process, error)
}

// ExecExecutor is the default Executor that uses os/exec.
type ExecExecutor struct{}

var _ Executor = (*ExecExecutor)(nil)

// execProcess wraps exec.Cmd to implement Process.
type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				return -1, &SignalError{Signal: ws.Signal()}
			}
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}

// Start implements Executor.Start using os/exec.
func (e *ExecExecutor) Start(c Command) (Process, error) {
	if c.Program == "" {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(c.Program, c.Args...)
	cmd.Env = MergeEnv(os.Environ(), c.Env)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	slog.Debug("process started", "program", c.Program, "pid", cmd.Process.Pid)

	return &execProcess{cmd: cmd}, nil
}

// MergeEnv returns base with overlay applied. Variables in overlay replace
// same-name entries of base. The overlay part is sorted for stable output.
func MergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[name]; replaced {
			continue
		}
		out = append(out, kv)
	}
	return append(out, envList(overlay)...)
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Default returns the default ExecExecutor.
func Default() Executor {
	return &ExecExecutor{}
}
