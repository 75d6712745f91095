package executor

import (
	"fmt"
	"io"
	"sync"
)

// FakeCommand is a function that simulates a command execution.
// It receives the command, writes to stdout and stderr and returns an exit code.
type FakeCommand func(cmd Command, stdout, stderr io.Writer) int

// FakeExecutor is a test implementation of Executor that runs registered fake commands.
type FakeExecutor struct {
	mu       sync.RWMutex
	commands map[string]FakeCommand
	started  []Command
}

var _ Executor = (*FakeExecutor)(nil)

// NewFakeExecutor creates a new FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		commands: make(map[string]FakeCommand),
	}
}

// RegisterCommand registers a fake command implementation.
// The name should match Command.Program.
func (e *FakeExecutor) RegisterCommand(name string, handler FakeCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands[name] = handler
}

// Started returns every command passed to Start, in order.
func (e *FakeExecutor) Started() []Command {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Command, len(e.started))
	copy(out, e.started)
	return out
}

// fakeProcess implements Process for FakeExecutor.
type fakeProcess struct {
	done     chan struct{}
	exitCode int
}

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	return p.exitCode, nil
}

// Start implements Executor.Start for FakeExecutor. The handler runs in its
// own goroutine, like a real child.
func (e *FakeExecutor) Start(cmd Command) (Process, error) {
	e.mu.Lock()
	handler, ok := e.commands[cmd.Program]
	e.started = append(e.started, cmd)
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("executable %q not found", cmd.Program)
	}

	stdout, stderr := cmd.Stdout, cmd.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	proc := &fakeProcess{done: make(chan struct{})}
	go func() {
		proc.exitCode = handler(cmd, stdout, stderr)
		close(proc.done)
	}()

	return proc, nil
}
