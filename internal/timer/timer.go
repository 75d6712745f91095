// Package timer runs a named task to completion, collects every failure its
// sub-operations report, logs the elapsed time and turns the outcome into a
// process exit code.
package timer

import (
	"fmt"
	"strings"
	"time"

	"github.com/gcornut/automation/internal/logging"
)

// Timer executes tasks. The zero value is not usable; call New.
type Timer struct {
	now     func() time.Time
	logOpts []logging.Option
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// WithLogging passes options to the task's logger.
func WithLogging(opts ...logging.Option) Option {
	return func(t *Timer) {
		t.logOpts = append(t.logOpts, opts...)
	}
}

// New creates a Timer.
func New(opts ...Option) *Timer {
	t := &Timer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes op under name and returns the exit code: 0 when nothing
// failed, 1 otherwise. Failures are logged, never returned.
func (t *Timer) Run(name string, op Pending) int {
	log := logging.New(logging.Prefix(name), t.logOpts...)

	started := t.now()
	log.Out("Started", started.Format(time.RFC3339))

	var errs errorSet
	resolve(Await(op), &errs)

	exitCode := 0
	if failures := errs.list(); len(failures) > 0 {
		for _, err := range failures {
			log.Err(err.Error())
		}
		exitCode = 1
	}

	finished := t.now()
	log.Out("Finished", finished.Format(time.RFC3339))
	log.Out("Elapsed time: " + FormatElapsed(finished.Sub(started)))
	log.Blank()

	return exitCode
}

// FormatElapsed renders d as "[H hour(s)] [M minute(s)] S second(s)".
//
// The hour figure is the hour-of-day component of d minus one and is only
// shown when that is positive, so 1h59m reads "59 minutes ..." and 2h reads
// "1 hour ...".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	var parts []string
	if hours-1 > 0 {
		parts = append(parts, fmt.Sprintf("%d hour%s", hours-1, plural(hours > 2)))
	}
	if minutes != 0 {
		parts = append(parts, fmt.Sprintf("%d minute%s", minutes, plural(minutes > 1)))
	}
	parts = append(parts, fmt.Sprintf("%d second%s", seconds, plural(seconds != 1)))
	return strings.Join(parts, " ")
}

func plural(many bool) string {
	if many {
		return "s"
	}
	return ""
}
