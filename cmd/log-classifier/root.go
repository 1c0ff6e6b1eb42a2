package main

import (
	"github.com/spf13/cobra"

	"github.com/neville-freeman/log-classifier/internal/config"
	"github.com/neville-freeman/log-classifier/internal/logging"
)

const version = "0.3.0"

// app carries state shared by all subcommands once the root command has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "log-classifier",
		Short: "Diagnose support-ticket log archives against a knowledge base",
		Long: `log-classifier reads the log archives attached to support tickets, matches
their lines against a knowledge base of known failure signatures, and posts
the resulting tags and problem/solution comment back on the ticket.`,
		Version: version,
		// Runtime errors are printed once by main.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (LOGCLS_* env vars override it)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text, json")

	root.AddCommand(
		newClassifyCmd(a),
		newProcessCmd(a),
		newWatchCmd(a),
		newKBCmd(a),
		newCodesCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}
