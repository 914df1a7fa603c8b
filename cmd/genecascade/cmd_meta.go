// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genecascade/internal/api"
	"github.com/tomtom215/genecascade/internal/batch"
	"github.com/tomtom215/genecascade/internal/config"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/report"
	"github.com/tomtom215/genecascade/internal/supervisor"
	"github.com/tomtom215/genecascade/internal/supervisor/services"
)

func newMetaCmd(a *app) *cobra.Command {
	var (
		pf          predictionFlags
		workers     int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Predict proteins and lineages for every bin in a directory",
		Long: "meta self-trains every bin first, pools the resulting models for bins\n" +
			"that could not train, and classifies all proteomes of a pass with a\n" +
			"single aligner call.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf.apply(a, cmd)
			if cmd.Flags().Changed("workers") {
				a.cfg.Batch.Workers = workers
			}
			if metricsAddr != "" {
				a.cfg.Metrics.Addr = metricsAddr
			}
			return runMeta(cmd, a.cfg, &pf)
		},
	}
	pf.register(cmd, "directory of bin FASTA files (required)")
	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "w", 0, "samples advanced concurrently (overrides batch.workers)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /status on this address while running")
	return cmd
}

func runMeta(cmd *cobra.Command, cfg *config.Config, pf *predictionFlags) (err error) {
	if err := cfg.ValidateForPrediction(); err != nil {
		return err
	}
	p, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, p) }()

	coord, err := batch.New(batch.Config{
		InputDir:       pf.input,
		OutDir:         pf.output,
		Workers:        cfg.Batch.Workers,
		Clean:          cfg.Batch.Clean,
		PrimaryDomains: cfg.Primary.Domains,
		DiagramWidth:   report.TerminalWidth(),
	}, p.batchDeps())
	if err != nil {
		return err
	}

	var res *batch.Result
	if cfg.Metrics.Addr == "" {
		res, err = coord.Run(cmd.Context())
	} else {
		res, err = superviseBatch(cmd.Context(), cfg, coord)
	}
	if err != nil {
		return err
	}

	if res.HarvestErr != "" {
		logging.Warn().Str("reason", res.HarvestErr).Msg("No self-trained models to share between bins")
	}
	if err := report.RenderSummary(cmd.OutOrStdout(), res.Rows(), pf.mode()); err != nil {
		return err
	}
	return writeMetricsTextfile(cfg.Metrics.Textfile)
}

// superviseBatch runs coord under a supervisor tree next to the status
// server. The tree stops when the batch returns.
func superviseBatch(ctx context.Context, cfg *config.Config, coord *batch.Coordinator) (*batch.Result, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return nil, err
	}

	batchSvc := services.NewBatchService(coord)
	tree.AddPipelineService(batchSvc)

	server := api.NewServer(cfg.Metrics.Addr, api.NewRouter(coord.Progress(), cfg.StatusAPI()))
	tree.AddAPIService(services.NewHTTPServerService(server, services.DefaultShutdownTimeout))

	treeErr := tree.Serve(ctx)

	select {
	case <-batchSvc.Done():
	default:
		// The tree stopped before the batch service ran to completion.
		if treeErr == nil {
			treeErr = ctx.Err()
		}
		return nil, errors.Join(errors.New("batch did not complete"), treeErr)
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Warn().Err(treeErr).Msg("Supervisor stopped with an error")
	}
	return batchSvc.Result()
}
