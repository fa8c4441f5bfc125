// Package cli implements the sovgauge command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sovgauge/internal/config"
	"github.com/FranksOps/sovgauge/internal/logging"
)

// state is shared by the subcommands once the root pre-run has loaded it.
type state struct {
	cfgFile   string
	logLevel  string
	logFormat string
	stdout    io.Writer
	stderr    io.Writer

	cfg *config.Config
	app *App
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sovgauge",
		Short: "Share-of-voice analysis for a brand against its competitors",
		Long: `sovgauge searches the web for a query, counts brand and competitor
mentions in the results, scores sentiment and reports share of voice with
rule-based recommendations.

Example usage:
  sovgauge analyze "smart fan"             # one-shot report on stdout
  sovgauge analyze --format html --out r.html
  sovgauge serve --addr :5000              # HTTP service
  sovgauge quota                           # remaining daily quota of a running service`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default is ./sovgauge.yaml)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&st.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newAnalyzeCmd(st), newServeCmd(st), newQuotaCmd(st))
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

func (st *state) init() error {
	cfg, err := config.Load(st.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if st.logLevel != "" {
		cfg.Logging.Level = st.logLevel
	}
	if st.logFormat != "" {
		cfg.Logging.Format = st.logFormat
	}
	st.cfg = cfg
	return nil
}

// build composes the application. Only commands that run analyses call it.
func (st *state) build() (*App, error) {
	logger, err := logging.New(st.stderr, st.cfg.Logging.Level, st.cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	app, err := Build(st.cfg, logger)
	if err != nil {
		return nil, err
	}
	st.app = app
	return app, nil
}
