// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package batch runs the prediction cascade over a directory of samples.
//
// All samples self-train first, in parallel. Models that trained
// successfully are collected and become the stage-one models of every
// sample that could not self-train. Classification is pooled: whenever all
// runs are blocked on a lineage, their proteomes are classified with a
// single aligner call.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/predict"
)

// Output layout below Config.OutDir.
const (
	DirWork     = "gmes"
	DirModels   = "1_models"
	DirProteins = "proteins"
	DirClassify = "diamond"
	LineageFile = "lineages.tsv"
	ResultsFile = "results.json"
)

// PooledClassifier classifies several proteomes at once.
type PooledClassifier interface {
	ClassifyPooled(ctx context.Context, inputs map[string]string, workdir string) (map[string]*classify.Result, error)
}

// Config describes a batch.
type Config struct {
	InputDir string
	OutDir   string

	// Workers bounds concurrently advancing runs.
	Workers int

	// Clean rewrites sequence headers before prediction.
	Clean bool

	PrimaryDomains []int
	DiagramWidth   int
}

// Deps are the collaborators shared by every run of the batch.
type Deps struct {
	Primary    predict.PrimaryPredictor
	Secondary  predict.SecondaryPredictor
	Catalog    predict.ModelCatalog
	Cache      predict.ResultCache
	Classifier PooledClassifier
}

// Coordinator drives every sample of a batch to a terminal state.
type Coordinator struct {
	cfg      Config
	deps     Deps
	progress *Progress
}

// New validates cfg and creates a coordinator with a fresh run id.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if cfg.InputDir == "" || cfg.OutDir == "" {
		return nil, fmt.Errorf("%w: input and output directories are required", models.ErrInvalidArgument)
	}
	if deps.Primary == nil || deps.Classifier == nil {
		return nil, fmt.Errorf("%w: primary predictor and classifier are required", models.ErrInvalidArgument)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Coordinator{
		cfg:      cfg,
		deps:     deps,
		progress: NewProgress(uuid.NewString()),
	}, nil
}

// Progress exposes the live batch state.
func (c *Coordinator) Progress() *Progress { return c.progress }

// Result is the outcome of a batch.
type Result struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Harvested  int                `json:"harvested_models"`
	HarvestErr string             `json:"harvest_error,omitempty"`
	Passes     int                `json:"classification_passes"`
	Outcomes   []*predict.Outcome `json:"samples"`
}

// Run processes every sample in the input directory. Per-sample failures
// are reported in the result; an error is returned only for problems that
// stop the whole batch.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	ctx = logging.ContextWithRunID(ctx, c.progress.runID)
	log := logging.Ctx(ctx)
	res := &Result{RunID: c.progress.runID, StartedAt: c.progress.started}

	paths, err := Discover(c.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no sequence files in %s", models.ErrInvalidArgument, c.cfg.InputDir)
	}
	samples, err := samplesFor(paths, filepath.Join(c.cfg.OutDir, DirWork))
	if err != nil {
		return nil, err
	}
	log.Info().Int("samples", len(samples)).Int("workers", c.cfg.Workers).Msg("Starting batch")

	runs, failed := c.prepare(ctx, samples)
	res.Outcomes = append(res.Outcomes, failed...)

	c.progress.setPhase(PhaseTraining)
	if err := c.selfTrain(ctx, runs); err != nil {
		return nil, err
	}
	res.Harvested, err = c.countHarvested()
	if err != nil {
		res.HarvestErr = err.Error()
		log.Warn().Err(err).Msg("No self-trained models available, samples continue with catalog and secondary predictor")
	} else {
		log.Info().Int("models", res.Harvested).Msg("Collected self-trained models")
	}

	c.progress.setPhase(PhaseCascade)
	res.Passes, err = c.cascade(ctx, runs)
	if err != nil {
		return nil, err
	}

	for _, r := range runs {
		res.Outcomes = append(res.Outcomes, r.Outcome())
	}
	c.progress.setPhase(PhaseFinished)
	res.FinishedAt = time.Now()

	if err := c.writeOutputs(res); err != nil {
		return res, err
	}
	log.Info().
		Int("samples", len(res.Outcomes)).
		Int("failed", res.Failed()).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("Batch finished")
	return res, nil
}

// Failed counts samples that ended without a prediction.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// prepare cleans inputs and creates runs. Samples whose input cannot be
// prepared fail immediately.
func (c *Coordinator) prepare(ctx context.Context, samples []models.Sample) ([]*predict.Run, []*predict.Outcome) {
	var (
		runs   []*predict.Run
		failed []*predict.Outcome
	)
	deps := predict.Deps{
		Primary:   c.deps.Primary,
		Secondary: c.deps.Secondary,
		Catalog:   c.deps.Catalog,
		Cache:     c.deps.Cache,
	}
	modelDir := filepath.Join(c.cfg.OutDir, DirModels)
	for _, s := range samples {
		c.progress.add(s.Name)

		prepared, _, err := predict.PrepareSample(s, c.cfg.Clean)
		if err == nil {
			var r *predict.Run
			r, err = predict.NewRun(predict.Config{
				Sample:          prepared,
				StageOneModels:  modelDir,
				CollectedModels: modelDir,
				DownloadDir:     filepath.Join(c.cfg.OutDir, DirWork, "models"),
				PrimaryDomains:  c.cfg.PrimaryDomains,
				DiagramWidth:    c.cfg.DiagramWidth,
				Output: predict.Output{
					Proteins:  filepath.Join(c.cfg.OutDir, DirProteins, s.Name+".faa"),
					Locations: filepath.Join(c.cfg.OutDir, DirProteins, s.Name+".bed"),
				},
			}, deps)
			if err == nil {
				runs = append(runs, r)
				continue
			}
		}

		logging.Ctx(ctx).Error().Err(err).Str("sample", s.Name).Msg("Could not prepare sample")
		o := &predict.Outcome{
			Sample:  s.Name,
			Source:  s.Source,
			Stage:   predict.StageFailed,
			Lineage: models.Lineage{},
			Err:     err,
			Error:   err.Error(),
		}
		failed = append(failed, o)
		c.progress.finish(o)
	}
	return runs, failed
}

// selfTrain advances every run through the cache lookup and self-training.
// It returns once all of them are past self-training.
func (c *Coordinator) selfTrain(ctx context.Context, runs []*predict.Run) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for _, r := range runs {
		g.Go(func() error {
			return c.advance(gctx, r, func(st predict.Stage) bool {
				return st == predict.StageInit || st == predict.StageSelfTraining
			})
		})
	}
	return g.Wait()
}

// cascade alternates parallel advancing with pooled classification until
// every run is terminal. It returns the number of classification passes.
func (c *Coordinator) cascade(ctx context.Context, runs []*predict.Run) (int, error) {
	pass := 0
	for {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Workers)
		for _, r := range runs {
			g.Go(func() error {
				return c.advance(gctx, r, func(predict.Stage) bool { return true })
			})
		}
		if err := g.Wait(); err != nil {
			return pass, err
		}

		waiting := make(map[string]*predict.Run)
		inputs := make(map[string]string)
		for _, r := range runs {
			if p, ok := r.Pending(); ok {
				name := r.Sample().Name
				waiting[name] = r
				inputs[name] = p.Proteome
			}
		}
		if len(waiting) == 0 {
			return pass, nil
		}

		pass++
		c.progress.setPass(pass)
		dir := filepath.Join(c.cfg.OutDir, DirClassify, "pass"+strconv.Itoa(pass))
		results, err := c.deps.Classifier.ClassifyPooled(ctx, inputs, dir)
		if err != nil {
			if ctx.Err() != nil {
				return pass, ctx.Err()
			}
			logging.Ctx(ctx).Warn().Err(err).Int("pass", pass).Msg("Pooled classification failed, continuing without lineages")
		}
		for name, r := range waiting {
			lineage := models.Lineage{}
			if res, ok := results[name]; ok && res != nil {
				lineage = res.Lineage
			}
			if err := r.ProvideLineage(lineage); err != nil {
				return pass, err
			}
		}
	}
}

// advance steps r while cont accepts its stage and it neither waits for a
// lineage nor is terminal.
func (c *Coordinator) advance(ctx context.Context, r *predict.Run, cont func(predict.Stage) bool) error {
	name := r.Sample().Name
	for {
		st := r.Stage()
		if st.Terminal() {
			c.progress.finish(r.Outcome())
			return nil
		}
		if !cont(st) {
			return nil
		}
		if _, waiting := r.Pending(); waiting {
			return nil
		}
		c.progress.running(name, st)
		if err := r.Advance(ctx); err != nil {
			if errors.Is(err, predict.ErrAwaitingLineage) {
				return nil
			}
			return err
		}
	}
}

// countHarvested counts the collected self-trained models.
func (c *Coordinator) countHarvested() (int, error) {
	entries, err := os.ReadDir(filepath.Join(c.cfg.OutDir, DirModels))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".mod" {
			n++
		}
	}
	metrics.HarvestedModels.Set(float64(n))
	if n == 0 {
		return 0, catalog.ErrZeroModelsAvailable
	}
	return n, nil
}
