// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package predict implements the per-sample prediction cascade.
//
// A Run moves through explicit states: result cache lookup, self-training,
// prediction with stage-one models, taxonomy estimate and catalog
// refinement, prediction with refined models, secondary prediction, hybrid
// merge and final classification. Stages that need a lineage stop and
// report it through Pending; a driver classifies the proteome and hands the
// lineage back with ProvideLineage. Execute is the single-sample driver;
// the batch coordinator pools classification across samples.
package predict

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
)

// Work directory layout.
const (
	dirSelfTraining = "selftraining"
	dirStageOne     = "1_premodels"
	dirStageTwo     = "2_premodels"
	dirDownloads    = "models"
	dirSecondary    = "secondary"
	dirHybrid       = "hybrid"
	dirClassify     = "diamond"
)

// Prediction is one proteome together with its gene locations.
type Prediction struct {
	Route     Route  `json:"route"`
	ModelID   string `json:"model_id,omitempty"`
	Proteins  string `json:"proteins"`
	Locations string `json:"locations"`
	Residues  int    `json:"residues"`
}

// Pending describes a proteome that needs a lineage before the run can
// continue.
type Pending struct {
	Stage    Stage
	Proteome string
}

// StageEvent is one completed transition.
type StageEvent struct {
	Stage    Stage         `json:"stage"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration_ns"`
}

// state is one node of the cascade. Each concrete type is handled by step.
type state interface {
	stage() Stage
}

type (
	initState             struct{}
	selfTrainingState     struct{}
	preModel1State        struct{}
	taxonomyEstimateState struct{ best *Prediction }
	preModel2State        struct{ models []modelRef }
	refreshState          struct{ best *Prediction }
	secondaryState        struct{}
	hybridMergeState      struct{}
	classifyState         struct{}
	doneState             struct{}
	failedState           struct{ err error }
)

func (initState) stage() Stage             { return StageInit }
func (selfTrainingState) stage() Stage     { return StageSelfTraining }
func (preModel1State) stage() Stage        { return StagePreModel1 }
func (taxonomyEstimateState) stage() Stage { return StageTaxonomyEstimate }
func (preModel2State) stage() Stage        { return StagePreModel2 }
func (refreshState) stage() Stage          { return StageRefresh }
func (secondaryState) stage() Stage        { return StageSecondary }
func (hybridMergeState) stage() Stage      { return StageHybridMerge }
func (classifyState) stage() Stage         { return StageClassify }
func (doneState) stage() Stage             { return StageDone }
func (failedState) stage() Stage           { return StageFailed }

// Run is the prediction cascade of one sample. Its methods are safe to call
// from several goroutines. Advance holds the run while a stage executes its
// tools, so Pending, ProvideLineage, Outcome and other Advance calls wait for
// it. Stage and Terminal never block.
type Run struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	state state

	// stage mirrors state.stage() for lock-free reads.
	stage atomic.Int32

	// lineages memoises classification results by proteome path.
	lineages map[string]models.Lineage

	stageOne  *Prediction
	primary   *Prediction
	secondary *Prediction
	final     *Prediction

	needsSecondary bool
	trace          []StageEvent

	// missed is set by a stage that ran but did not reach its goal.
	missed bool
}

// NewRun validates cfg and creates a run in the Init state.
func NewRun(cfg Config, deps Deps) (*Run, error) {
	if deps.Primary == nil {
		return nil, fmt.Errorf("%w: primary predictor is required", models.ErrInvalidArgument)
	}
	if cfg.Sample.Name == "" || cfg.Sample.Sequence == "" || cfg.Sample.WorkDir == "" {
		return nil, fmt.Errorf("%w: sample needs a name, a sequence and a work directory", models.ErrInvalidArgument)
	}
	if cfg.Sample.Source == "" {
		cfg.Sample.Source = cfg.Sample.Sequence
	}
	if len(cfg.PrimaryDomains) == 0 {
		cfg.PrimaryDomains = DefaultPrimaryDomains
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(cfg.Sample.WorkDir, dirDownloads)
	}
	r := &Run{
		cfg:      cfg,
		deps:     deps,
		state:    initState{},
		lineages: make(map[string]models.Lineage),
	}
	r.stage.Store(int32(StageInit))
	return r, nil
}

// Sample returns the sample this run predicts.
func (r *Run) Sample() models.Sample { return r.cfg.Sample }

// Stage returns the current stage.
func (r *Run) Stage() Stage {
	return Stage(r.stage.Load())
}

// Terminal reports whether the run reached Done or Failed.
func (r *Run) Terminal() bool { return r.Stage().Terminal() }

// Pending reports the proteome the run is waiting to have classified.
func (r *Run) Pending() (Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingLocked()
}

func (r *Run) pendingLocked() (Pending, bool) {
	var proteome string
	switch s := r.state.(type) {
	case taxonomyEstimateState:
		proteome = s.best.Proteins
	case refreshState:
		proteome = s.best.Proteins
	case classifyState:
		proteome = r.final.Proteins
	default:
		return Pending{}, false
	}
	if _, ok := r.lineages[proteome]; ok {
		return Pending{}, false
	}
	return Pending{Stage: r.state.stage(), Proteome: proteome}, true
}

// ProvideLineage supplies the lineage of the pending proteome.
func (r *Run) ProvideLineage(l models.Lineage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pendingLocked()
	if !ok {
		return fmt.Errorf("%w: sample %s is not awaiting a lineage", models.ErrInvalidArgument, r.cfg.Sample.Name)
	}
	if l == nil {
		l = models.Lineage{}
	}
	r.lineages[p.Proteome] = l.Clone()
	return nil
}

// Advance performs one transition. It returns ErrAwaitingLineage, without
// changing state, when the current stage needs a lineage first. Context
// cancellation is returned as is and leaves the run resumable. Advancing a
// terminal run is a no-op.
func (r *Run) Advance(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.state
	if current.stage().Terminal() {
		return nil
	}
	if _, waiting := r.pendingLocked(); waiting {
		return ErrAwaitingLineage
	}

	ctx = logging.ContextWithSample(ctx, r.cfg.Sample.Name)
	ctx = logging.ContextWithStage(ctx, current.stage().String())

	start := time.Now()
	r.missed = false
	next, err := r.step(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		logging.Ctx(ctx).Error().Err(err).Msg("Prediction stage failed")
		next = failedState{err: fmt.Errorf("%s: %w", current.stage(), err)}
	}

	success := !r.missed && next.stage() != StageFailed
	elapsed := time.Since(start)
	metrics.RecordStage(current.stage().String(), elapsed, success)
	r.trace = append(r.trace, StageEvent{Stage: current.stage(), Success: success, Duration: elapsed})

	logging.Ctx(ctx).Debug().
		Str("next", next.stage().String()).
		Dur("elapsed", elapsed).
		Msg("Stage complete")

	r.state = next
	r.stage.Store(int32(next.stage()))
	if next.stage().Terminal() {
		r.finishLocked(ctx)
	}
	return nil
}

// step dispatches the current state. Every state type must be listed.
func (r *Run) step(ctx context.Context) (state, error) {
	switch s := r.state.(type) {
	case initState:
		return r.init(ctx)
	case selfTrainingState:
		return r.selfTrain(ctx)
	case preModel1State:
		return r.preModel1(ctx)
	case taxonomyEstimateState:
		return r.taxonomyEstimate(ctx, s)
	case preModel2State:
		return r.preModel2(ctx, s)
	case refreshState:
		return r.refresh(ctx, s)
	case secondaryState:
		return r.runSecondary(ctx)
	case hybridMergeState:
		return r.hybridMerge(ctx)
	case classifyState:
		return r.complete(ctx)
	case doneState, failedState:
		return s, nil
	default:
		panic(fmt.Sprintf("predict: unhandled state %T", s))
	}
}

func (r *Run) finishLocked(ctx context.Context) {
	label := string(RouteNone)
	switch s := r.state.(type) {
	case doneState:
		label = string(r.final.Route)
		logging.Ctx(ctx).Info().
			Str("route", label).
			Str("proteins", r.final.Proteins).
			Str("lineage", r.lineages[r.final.Proteins].String()).
			Msg("Prediction finished")
	case failedState:
		label = "failed"
		logging.Ctx(ctx).Warn().Err(s.err).Msg("Prediction failed")
	}
	metrics.SamplesCompleted.WithLabelValues(label).Inc()
}

// Outcome summarises the run. It is meaningful once the run is terminal.
func (r *Run) Outcome() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := &Outcome{
		Sample:         r.cfg.Sample.Name,
		Source:         r.cfg.Sample.Source,
		Stage:          r.state.stage(),
		NeedsSecondary: r.needsSecondary,
		Trace:          append([]StageEvent(nil), r.trace...),
		Lineage:        models.Lineage{},
	}
	if r.final != nil {
		o.Route = r.final.Route
		o.ModelID = r.final.ModelID
		o.Proteins = r.final.Proteins
		o.Locations = r.final.Locations
		o.Residues = r.final.Residues
		if l, ok := r.lineages[r.final.Proteins]; ok {
			o.Lineage = l.Clone()
		}
	}
	if f, ok := r.state.(failedState); ok {
		o.Err = f.err
		o.Error = f.err.Error()
	}
	return o
}

// Execute drives the run to completion, classifying each pending proteome
// with c. Classification failures are logged and yield an empty lineage.
func (r *Run) Execute(ctx context.Context, c Classifier) (*Outcome, error) {
	for !r.Terminal() {
		if p, ok := r.Pending(); ok {
			dir := filepath.Join(r.cfg.Sample.WorkDir, dirClassify, p.Stage.String())
			lng := models.Lineage{}
			res, err := c.Classify(ctx, p.Proteome, dir)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil, ctx.Err()
			case err != nil:
				logging.Ctx(ctx).Warn().Err(err).Str("sample", r.cfg.Sample.Name).Msg("Classification failed")
			default:
				lng = res.Lineage
			}
			if err := r.ProvideLineage(lng); err != nil {
				return nil, err
			}
		}
		if err := r.Advance(ctx); err != nil {
			return nil, err
		}
	}
	out := r.Outcome()
	return out, out.Err
}
