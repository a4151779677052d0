// Package commands implements the chartctl command line.
package commands

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/facilityops/sensor-dashboard/internal/logging"
)

const cmdName = "chartctl"

// App is the chartctl command line application.
type App struct {
	cmd *cobra.Command

	in  io.Reader
	out io.Writer
	log io.Writer

	verbosity int
	logger    *slog.Logger
}

type options struct {
	in  io.Reader
	out io.Writer
	log io.Writer
}

// Options customizes the application streams.
type Options func(*options)

// WithStreams replaces stdin, stdout and the log output.
func WithStreams(in io.Reader, out, log io.Writer) Options {
	return func(o *options) {
		o.in, o.out, o.log = in, out, log
	}
}

// New registers commands and returns a new App.
func New(args ...Options) (*App, error) {
	var opts options
	for _, f := range args {
		f(&opts)
	}

	a := &App{in: opts.in, out: opts.out, log: opts.log}
	a.cmd = &cobra.Command{
		Use:   cmdName,
		Short: "Compute sensor chart series offline",
		Long: `Compute sensor chart series offline.

chartctl runs the same normalization, grouping and downsampling as the REST API
over a JSON array of raw sensor records.`,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Parsing succeeded; do not print usage on runtime errors.
			a.cmd.SilenceUsage = true
			a.setupLogging()
		},
	}
	if a.in != nil {
		a.cmd.SetIn(a.in)
	}
	if a.out != nil {
		a.cmd.SetOut(a.out)
	}

	a.cmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "issue INFO (-v) and DEBUG (-vv) output")

	installComputeCmd(a)
	installRangesCmd(a)

	return a, nil
}

func (a *App) setupLogging() {
	level := slog.LevelWarn
	switch {
	case a.verbosity >= 2:
		level = slog.LevelDebug
	case a.verbosity == 1:
		level = slog.LevelInfo
	}
	w := a.log
	if w == nil {
		w = a.cmd.ErrOrStderr()
	}
	a.logger = logging.New(w, level, false)
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() *cobra.Command {
	return a.cmd
}

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args []string) {
	a.cmd.SetArgs(args)
}
