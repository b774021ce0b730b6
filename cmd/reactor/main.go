// Command reactor serves, runs and inspects reactive store scripts.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	diag "github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/logging"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries what the root command prepares for its subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *logging.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		diag.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reactor",
		Short: "Reactive key-value stores driven by Starlark scripts",
		Long: `Reactor keeps a key-value store in which computed properties,
watchers and bindings update automatically when the values they read
change.

A script declares the initial state, the computed properties and the
actions; reactor serves it over HTTP and WebSocket, runs it once from
the command line, or describes what it declares.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "version", "init":
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.log != nil {
				return a.log.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("reactor {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./reactor.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text|json)")
	rootCmd.PersistentFlags().String("log-file", "", "also append JSON logs to this file")

	rootCmd.AddCommand(
		serveCmd(a),
		runCmd(a),
		inspectCmd(a),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup loads the configuration with cmd's flags applied and builds the
// logger. Logs go to stderr so command output stays parseable.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	if cfg.File != "" {
		log.Debug("using config file", "path", cfg.File)
	}
	return nil
}
