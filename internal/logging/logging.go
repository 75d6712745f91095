// Package logging writes task output to the standard streams with every line
// carrying a caller-supplied label, optionally mirrored to the systemd journal.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
)

// Transform rewrites a single output line.
type Transform func(line string) string

// Prefix returns a Transform that puts "[label] " in front of each line.
func Prefix(label string) Transform {
	return func(line string) string {
		return "[" + label + "] " + line
	}
}

// Mirror receives every emitted line in addition to the output streams.
type Mirror interface {
	Send(fd int, line string) error
}

// Logger splits text into lines, transforms each one and writes the result
// to stdout (Out) or stderr (Err).
type Logger struct {
	transform Transform
	out       io.Writer
	err       io.Writer
	mirror    Mirror
	color     bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput replaces the stdout and stderr writers.
func WithOutput(out, err io.Writer) Option {
	return func(l *Logger) {
		l.out = out
		l.err = err
	}
}

// WithMirror sends every line to m as well. A nil mirror is ignored.
func WithMirror(m Mirror) Option {
	return func(l *Logger) {
		l.mirror = m
	}
}

// WithColor highlights the label of Prefix transforms with ANSI escapes.
func WithColor(enabled bool) Option {
	return func(l *Logger) {
		l.color = enabled
	}
}

// New creates a Logger. Without options it writes to os.Stdout and os.Stderr.
func New(transform Transform, opts ...Option) *Logger {
	if transform == nil {
		transform = func(line string) string { return line }
	}
	l := &Logger{
		transform: transform,
		out:       os.Stdout,
		err:       os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Out writes text to stdout, followed by any extra values.
func (l *Logger) Out(text string, extra ...any) {
	l.emit(1, l.out, text, extra)
}

// Err writes text to stderr, followed by any extra values.
func (l *Logger) Err(text string, extra ...any) {
	l.emit(2, l.err, text, extra)
}

// Blank writes an empty line to stdout.
func (l *Logger) Blank() {
	write(l.out, "\n")
}

// Lines returns the transformed lines for text, without extras.
func (l *Logger) Lines(text string) []string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = l.transform(line)
	}
	return lines
}

func (l *Logger) emit(fd int, w io.Writer, text string, extra []any) {
	lines := l.Lines(text)
	if len(extra) > 0 {
		parts := make([]string, 0, len(extra)+1)
		parts = append(parts, lines[len(lines)-1])
		for _, v := range extra {
			parts = append(parts, fmt.Sprint(v))
		}
		lines[len(lines)-1] = strings.Join(parts, " ")
	}

	if l.mirror != nil {
		for _, line := range lines {
			_ = l.mirror.Send(fd, line)
		}
	}

	if l.color {
		for i, line := range lines {
			lines[i] = colorize(fd, line)
		}
	}
	write(w, strings.Join(lines, "\n")+"\n")
}

// writeMu serialises all writes so that concurrent loggers never interleave
// inside one block.
var writeMu sync.Mutex

func write(w io.Writer, s string) {
	writeMu.Lock()
	defer writeMu.Unlock()
	_, _ = io.WriteString(w, s)
}
