// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genecascade/internal/config"
	"github.com/tomtom215/genecascade/internal/logging"
)

// app carries global flags and the loaded configuration to subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	quiet      bool
	debug      bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "genecascade",
		Short: "Cascading eukaryotic gene prediction with taxonomic consensus",
		Long: "genecascade predicts proteins in genomes and metagenomic bins by trying\n" +
			"self-training first and borrowing taxonomically matched models when that\n" +
			"fails, then infers each proteome's lineage by majority vote over aligned hits.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default: "+config.ConfigPathEnvVar+" or ./genecascade.yaml)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "log format: json, console, auto")
	f.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	f.BoolVar(&a.debug, "debug", false, "log at debug level")
	root.MarkFlagsMutuallyExclusive("quiet", "debug")

	root.AddCommand(
		newRunCmd(a),
		newMetaCmd(a),
		newTaxonomyCmd(a),
		newCacheCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, applies global flags and initializes logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	switch {
	case a.debug:
		cfg.Logging.Level = "debug"
	case a.quiet:
		cfg.Logging.Level = "error"
	case a.logLevel != "":
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if !logging.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("%w: unknown log level %q", config.ErrInvalidConfig, cfg.Logging.Level)
	}

	ls := cfg.LoggingSettings()
	ls.Output = cmd.ErrOrStderr()
	logging.Init(ls)

	a.cfg = cfg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "genecascade %s\n", version)
			return err
		},
	}
}
