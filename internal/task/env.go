// Package task holds the collaborators shared by the backup and synchronize
// operations.
package task

import (
	"github.com/gcornut/automation/internal/config"
	"github.com/gcornut/automation/internal/logging"
	"github.com/gcornut/automation/internal/spawn"
)

// Env wires an operation to configuration, process execution and output.
type Env struct {
	Config *config.Loader
	Runner *spawn.Runner
	// Logging is applied to every logger created through Logger.
	Logging []logging.Option
}

// Logger returns a logger prefixing lines with "[label] ".
func (e Env) Logger(label string) *logging.Logger {
	return logging.New(logging.Prefix(label), e.Logging...)
}

// Options returns spawn options streaming through log.
func Options(log *logging.Logger, env map[string]string) spawn.Options {
	return spawn.Options{Env: env, Out: log.Out, Err: log.Err}
}
