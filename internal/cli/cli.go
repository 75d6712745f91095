// Package cli implements the command line shared by the backup and
// synchronize entrypoints.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/gcornut/automation/internal/config"
	"github.com/gcornut/automation/internal/executor"
	"github.com/gcornut/automation/internal/inhibit"
	"github.com/gcornut/automation/internal/logging"
	"github.com/gcornut/automation/internal/spawn"
	"github.com/gcornut/automation/internal/task"
	"github.com/gcornut/automation/internal/timer"
)

// PlanFunc builds the operation for a config name.
type PlanFunc func(env task.Env, configName string) timer.Pending

// Options are the parsed command line.
type Options struct {
	ConfigDir  string
	ConfigName string
	DryRun     bool
	Journal    bool
	Inhibit    bool
	Verbose    bool
	Color      logging.ColorMode
}

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

// ParseArgs parses args for the named command. Help output goes to w.
func ParseArgs(name string, args []string, w io.Writer) (*Options, error) {
	var opts Options
	var color string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.StringVarP(&opts.ConfigDir, "config-dir", "c", os.Getenv("AUTOMATION_CONFIG_DIR"), "Directory holding common.yaml and target documents")
	fs.BoolVarP(&opts.DryRun, "dry-run", "n", false, "Print commands without running them")
	fs.BoolVar(&opts.Journal, "journal", false, "Also send output lines to the systemd journal")
	fs.BoolVar(&opts.Inhibit, "inhibit", false, "Block sleep and shutdown while running")
	fs.StringVar(&color, "color", string(logging.ColorAuto), "Highlight labels: auto, always, never")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", os.Getenv("AUTOMATION_DEBUG") != "", "Debug logging")
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage:\n  %s [flags] <config>\n\nFlags:\n", name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	mode, err := logging.ParseColorMode(color)
	if err != nil {
		return nil, err
	}
	opts.Color = mode

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("%w: %s [flags] <config>", errUsage, name)
	}
	opts.ConfigName = config.NormalizeName(fs.Arg(0))
	return &opts, nil
}

// App runs one task from the command line.
type App struct {
	Name      string
	Plan      PlanFunc
	Executor  executor.Executor
	Inhibitor inhibit.Inhibitor
	Stdout    io.Writer
	Stderr    io.Writer
	Clock     func() time.Time
}

// Main runs the task named name and exits.
func Main(name string, plan PlanFunc) {
	app := &App{Name: name, Plan: plan}
	os.Exit(app.Run(os.Args[1:]))
}

// Run parses args, runs the task and returns the process exit code.
func (a *App) Run(args []string) int {
	a.defaults()

	opts, err := ParseArgs(a.Name, args, a.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %v\n", err)
		return 1
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{Level: logLevel})))

	logOpts := []logging.Option{
		logging.WithOutput(a.Stdout, a.Stderr),
		logging.WithColor(opts.Color.Enabled(fileOf(a.Stdout))),
	}
	if opts.Journal {
		if m := logging.NewJournalMirror(a.Name); m != nil {
			logOpts = append(logOpts, logging.WithMirror(m))
		} else {
			slog.Warn("journal not available, not mirroring output")
		}
	}

	env := task.Env{
		Config:  config.NewLoader(opts.ConfigDir),
		Runner:  spawn.New(a.Executor, opts.DryRun),
		Logging: logOpts,
	}
	slog.Debug("starting task", "task", a.Name, "config", env.Config.Path(opts.ConfigName), "dryRun", opts.DryRun)

	inh := inhibit.Inhibitor(inhibit.Noop{})
	if opts.Inhibit && !env.Runner.DryRun() {
		inh = a.Inhibitor
	}
	release := inhibit.Hold(inh, a.Name+" "+opts.ConfigName+" in progress", env.Logger(a.Name).Err)
	defer release()

	t := timer.New(timer.WithClock(a.Clock), timer.WithLogging(logOpts...))
	return t.Run(a.Name, a.Plan(env, opts.ConfigName))
}

func (a *App) defaults() {
	if a.Executor == nil {
		a.Executor = executor.Default()
	}
	if a.Inhibitor == nil {
		a.Inhibitor = inhibit.Logind{Who: "automation " + a.Name}
	}
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.Clock == nil {
		a.Clock = time.Now
	}
}

func fileOf(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
