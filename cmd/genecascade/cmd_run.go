// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/predict"
	"github.com/tomtom215/genecascade/internal/report"
)

// Single-sample output files.
const (
	runProteins  = "predicted_proteins.faa"
	runLocations = "predicted_proteins.bed"
	runLineage   = "lineage.tsv"
)

// predictionFlags are shared by run and meta.
type predictionFlags struct {
	input    string
	output   string
	db       string
	threads  int
	noClean  bool
	markdown bool
}

func (pf *predictionFlags) register(cmd *cobra.Command, inputHelp string) {
	f := cmd.Flags()
	f.StringVarP(&pf.input, "input", "i", "", inputHelp)
	f.StringVarP(&pf.output, "output", "o", "", "output directory (required)")
	f.StringVarP(&pf.db, "db", "d", "", "diamond database (overrides aligner.database)")
	f.IntVarP(&pf.threads, "threads", "n", 0, "threads per tool invocation (overrides threads)")
	f.BoolVar(&pf.noClean, "no-clean", false, "keep sequence headers as they are")
	f.BoolVar(&pf.markdown, "markdown", false, "print the summary as a Markdown table")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

// apply copies flag overrides into the loaded configuration.
func (pf *predictionFlags) apply(a *app, cmd *cobra.Command) {
	if pf.db != "" {
		a.cfg.Aligner.Database = pf.db
	}
	if cmd.Flags().Changed("threads") {
		a.cfg.Threads = pf.threads
	}
	if pf.noClean {
		a.cfg.Batch.Clean = false
	}
}

func (pf *predictionFlags) mode() report.Mode {
	if pf.markdown {
		return report.Markdown
	}
	return report.ASCII
}

func newRunCmd(a *app) *cobra.Command {
	var (
		pf       predictionFlags
		modelDir string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Predict proteins and infer the lineage of one genome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf.apply(a, cmd)
			if modelDir != "" {
				a.cfg.Primary.Models = modelDir
			}
			return runSingle(cmd, a, &pf)
		},
	}
	pf.register(cmd, "genome FASTA, optionally gzipped (required)")
	cmd.Flags().StringVar(&modelDir, "models", "", "directory of *.mod models to try when self-training fails")
	return cmd
}

func runSingle(cmd *cobra.Command, a *app, pf *predictionFlags) (err error) {
	cfg := a.cfg
	if err := cfg.ValidateForPrediction(); err != nil {
		return err
	}
	if !models.IsSequenceFile(pf.input) {
		return fmt.Errorf("%w: %s is not a FASTA file", models.ErrInvalidArgument, pf.input)
	}

	p, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, p) }()

	sample, err := models.NewSample(pf.input, pf.output)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(sample.WorkDir, 0o755); err != nil {
		return err
	}
	sample, cleaned, err := predict.PrepareSample(sample, cfg.Batch.Clean)
	if err != nil {
		return err
	}
	if cleaned != nil && cleaned.Renamed > 0 {
		logging.Info().Int("renamed", cleaned.Renamed).Str("mapping", cleaned.Mapping).Msg("Sequence headers cleaned")
	}

	run, err := predict.NewRun(predict.Config{
		Sample:         sample,
		StageOneModels: cfg.Primary.Models,
		PrimaryDomains: cfg.Primary.Domains,
		Output: predict.Output{
			Proteins:  filepath.Join(pf.output, runProteins),
			Locations: filepath.Join(pf.output, runLocations),
		},
		DiagramWidth: report.TerminalWidth(),
	}, p.runDeps())
	if err != nil {
		return err
	}

	ctx := logging.ContextWithRunID(cmd.Context(), logging.GenerateRunID())
	ctx = logging.ContextWithSample(ctx, sample.Name)
	outcome, runErr := run.Execute(ctx, p.classifier)
	if outcome == nil {
		return runErr
	}

	if outcome.Succeeded() {
		entry := report.LineageEntry{Sample: outcome.Sample, Lineage: outcome.Lineage}
		if err := report.WriteLineagesFile(filepath.Join(pf.output, runLineage), []report.LineageEntry{entry}); err != nil {
			return err
		}
	}

	if err := report.RenderSummary(cmd.OutOrStdout(), []report.Row{outcome.SummaryRow()}, pf.mode()); err != nil {
		return err
	}
	return errors.Join(runErr, writeMetricsTextfile(cfg.Metrics.Textfile))
}
