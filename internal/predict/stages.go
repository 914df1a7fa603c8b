// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/report"
	"github.com/tomtom215/genecascade/internal/resultcache"
	"github.com/tomtom215/genecascade/internal/tools"
)

func (r *Run) workPath(elem ...string) string {
	return filepath.Join(append([]string{r.cfg.Sample.WorkDir}, elem...)...)
}

// init restores a cached prediction when one exists for the input.
func (r *Run) init(ctx context.Context) (state, error) {
	if r.deps.Cache == nil {
		return selfTrainingState{}, nil
	}
	ok, err := r.deps.Cache.Exists(r.cfg.Sample.Source)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Result cache lookup failed")
		return selfTrainingState{}, nil
	}
	if !ok {
		return selfTrainingState{}, nil
	}

	out := r.outputPaths()
	if err := os.MkdirAll(filepath.Dir(out.Proteins), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out.Locations), 0o755); err != nil {
		return nil, err
	}
	for _, item := range []struct {
		kind resultcache.Kind
		dest string
	}{
		{resultcache.KindProtein, out.Proteins},
		{resultcache.KindLocation, out.Locations},
	} {
		status, err := r.deps.Cache.Restore(r.cfg.Sample.Source, item.dest, item.kind)
		if err != nil || status == resultcache.RestoreMissing {
			logging.Ctx(ctx).Warn().Err(err).Str("kind", item.kind.String()).Msg("Could not restore cached prediction")
			r.missed = true
			return selfTrainingState{}, nil
		}
	}

	r.final = &Prediction{Route: RouteCache, Proteins: out.Proteins, Locations: out.Locations}
	if s, err := fasta.Summarize(out.Proteins); err == nil {
		r.final.Residues = s.Residues
	}
	logging.Ctx(ctx).Info().Msg("Restored prediction from result cache")
	return classifyState{}, nil
}

// selfTrain runs the primary predictor in self-training mode.
func (r *Run) selfTrain(ctx context.Context) (state, error) {
	res, err := r.deps.Primary.SelfTrain(ctx, r.cfg.Sample.Sequence, r.workPath(dirSelfTraining))
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Self-training did not finish cleanly")
	}
	if !primarySucceeded(ctx, res) {
		logging.Ctx(ctx).Info().Msg("Self-training produced no proteins, trying pre-trained models")
		r.missed = true
		return preModel1State{}, nil
	}

	logging.Ctx(ctx).Info().Msg("Self-training succeeded")
	r.harvestModel(ctx, res.Model)
	r.primary = r.prediction(RouteSelfTrained, "", res)
	r.final = r.primary
	return classifyState{}, nil
}

// harvestModel copies the trained model into the shared collection.
func (r *Run) harvestModel(ctx context.Context, model string) {
	if r.cfg.CollectedModels == "" {
		return
	}
	if _, err := os.Stat(model); err != nil {
		logging.Ctx(ctx).Warn().Str("model", model).Msg("Self-training succeeded without a model file")
		return
	}
	dst := filepath.Join(r.cfg.CollectedModels, r.cfg.Sample.Name+".mod")
	if err := copyFile(model, dst); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("dest", dst).Msg("Could not collect trained model")
		return
	}
	logging.Ctx(ctx).Debug().Str("dest", dst).Msg("Collected trained model")
}

// preModel1 predicts with every model in the stage-one directory.
func (r *Run) preModel1(ctx context.Context) (state, error) {
	if r.deps.Catalog != nil {
		if _, err := r.deps.Catalog.Info(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Model catalog index unavailable")
		}
	}

	refs, err := listModels(r.cfg.StageOneModels)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("dir", r.cfg.StageOneModels).Msg("Could not list stage-one models")
	}
	best, err := r.predictWithModels(ctx, refs, dirStageOne, RouteStageOne)
	if err != nil {
		return nil, err
	}
	if best == nil {
		logging.Ctx(ctx).Warn().Int("models", len(refs)).Msg("Could not predict any proteins with stage-one models")
		r.missed = true
		r.needsSecondary = true
		return secondaryState{}, nil
	}
	r.stageOne = best
	r.primary = best
	return taxonomyEstimateState{best: best}, nil
}

// taxonomyEstimate uses the stage-one lineage to refine the model choice.
func (r *Run) taxonomyEstimate(ctx context.Context, s taxonomyEstimateState) (state, error) {
	lineage := r.lineages[s.best.Proteins]
	r.logDiagram(ctx, s.best, lineage)

	if r.deps.Catalog == nil {
		return r.afterBorrowedModel(ctx, lineage), nil
	}
	refined, err := r.deps.Catalog.Refine(ctx, lineage, r.cfg.DownloadDir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch {
		case errors.Is(err, catalog.ErrNoCandidates),
			errors.Is(err, catalog.ErrZeroModelsAvailable),
			errors.Is(err, catalog.ErrCatalogUnavailable):
			logging.Ctx(ctx).Warn().Err(err).Msg("Model refinement aborted, keeping stage-one prediction")
		default:
			logging.Ctx(ctx).Warn().Err(err).Msg("Model refinement failed, keeping stage-one prediction")
		}
		r.missed = true
		return r.afterBorrowedModel(ctx, lineage), nil
	}

	refs := make([]modelRef, len(refined))
	for i, m := range refined {
		refs[i] = modelRef{ID: m.ID, Path: m.Path}
	}
	return preModel2State{models: refs}, nil
}

// preModel2 predicts with the refined models.
func (r *Run) preModel2(ctx context.Context, s preModel2State) (state, error) {
	best, err := r.predictWithModels(ctx, s.models, dirStageTwo, RouteRefined)
	if err != nil {
		return nil, err
	}
	if best == nil {
		logging.Ctx(ctx).Warn().Msg("Refined models predicted nothing, keeping stage-one prediction")
		r.missed = true
		r.primary = r.stageOne
		return r.afterBorrowedModel(ctx, r.lineages[r.stageOne.Proteins]), nil
	}
	r.primary = best
	return refreshState{best: best}, nil
}

// refresh records the lineage of the refined prediction.
func (r *Run) refresh(ctx context.Context, s refreshState) (state, error) {
	lineage := r.lineages[s.best.Proteins]
	r.logDiagram(ctx, s.best, lineage)
	return r.afterBorrowedModel(ctx, lineage), nil
}

// afterBorrowedModel decides whether a borrowed-model prediction also needs
// the secondary predictor.
func (r *Run) afterBorrowedModel(ctx context.Context, lineage models.Lineage) state {
	r.needsSecondary = !containsAny(lineage, r.cfg.PrimaryDomains)
	if r.needsSecondary && r.deps.Secondary != nil {
		logging.Ctx(ctx).Info().
			Str("lineage", lineage.String()).
			Ints("primary_domains", r.cfg.PrimaryDomains).
			Msg("Lineage outside the primary domains, running secondary predictor")
		return secondaryState{}
	}
	r.final = r.primary
	return classifyState{}
}

func containsAny(l models.Lineage, taxids []int) bool {
	for _, id := range taxids {
		if l.Contains(id) {
			return true
		}
	}
	return false
}

// runSecondary runs the prokaryotic predictor on the raw sample.
func (r *Run) runSecondary(ctx context.Context) (state, error) {
	if r.deps.Secondary == nil {
		r.missed = true
		return r.withoutSecondary(ctx), nil
	}
	res, err := r.deps.Secondary.Predict(ctx, r.cfg.Sample.Sequence, r.workPath(dirSecondary))
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Secondary predictor failed")
	}
	ok, serr := fasta.HasSequence(res.Proteins)
	if serr != nil {
		logging.Ctx(ctx).Warn().Err(serr).Msg("Could not read secondary proteins")
	}
	if err != nil || !ok {
		r.missed = true
		return r.withoutSecondary(ctx), nil
	}

	r.secondary = &Prediction{Route: RouteSecondary, Proteins: res.Proteins, Locations: res.Locations}
	if s, err := fasta.Summarize(res.Proteins); err == nil {
		r.secondary.Residues = s.Residues
	}
	return hybridMergeState{}, nil
}

func (r *Run) withoutSecondary(ctx context.Context) state {
	if r.primary == nil {
		return failedState{err: fmt.Errorf("%w for sample %s", ErrNoPrediction, r.cfg.Sample.Name)}
	}
	logging.Ctx(ctx).Info().Msg("Keeping primary prediction")
	r.final = r.primary
	return classifyState{}
}

// hybridMerge combines primary and secondary proteomes contig-wise.
func (r *Run) hybridMerge(ctx context.Context) (state, error) {
	if r.primary == nil {
		r.final = r.secondary
		return classifyState{}, nil
	}
	merged, added, err := HybridMerge(r.primary, r.secondary, r.workPath(dirHybrid))
	if err != nil {
		return nil, err
	}
	if added == 0 {
		logging.Ctx(ctx).Info().Msg("Secondary prediction adds no new contigs, keeping primary")
		r.final = r.primary
	} else {
		logging.Ctx(ctx).Info().Int("added", added).Msg("Merged secondary proteins on contigs without primary genes")
		r.final = merged
	}
	return classifyState{}, nil
}

// complete publishes the final prediction and stores it in the cache.
func (r *Run) complete(ctx context.Context) (state, error) {
	lineage := r.lineages[r.final.Proteins]
	out := r.outputPaths()

	if r.final.Route != RouteCache {
		if err := ensureFile(r.final.Locations); err != nil {
			return nil, err
		}
		if out.Proteins != r.final.Proteins {
			if err := copyFile(r.final.Proteins, out.Proteins); err != nil {
				return nil, fmt.Errorf("publish proteins: %w", err)
			}
		}
		if out.Locations != r.final.Locations {
			if err := copyFile(r.final.Locations, out.Locations); err != nil {
				return nil, fmt.Errorf("publish locations: %w", err)
			}
		}
		final := *r.final
		final.Proteins, final.Locations = out.Proteins, out.Locations
		r.final = &final
		r.lineages[out.Proteins] = lineage

		if r.deps.Cache != nil {
			if err := r.deps.Cache.Store(r.cfg.Sample.Source, out.Proteins, out.Locations); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Could not store prediction in result cache")
			}
		}
	}
	return doneState{}, nil
}

func (r *Run) outputPaths() Output {
	out := r.cfg.Output
	if out.Proteins == "" {
		out.Proteins = r.workPath("final_proteins.faa")
	}
	if out.Locations == "" {
		out.Locations = r.workPath("final_genes.bed")
	}
	return out
}

// prediction describes a successful primary result.
func (r *Run) prediction(route Route, modelID string, res tools.PrimaryResult) *Prediction {
	p := &Prediction{Route: route, ModelID: modelID, Proteins: res.Proteins, Locations: res.Locations}
	if s, err := fasta.Summarize(res.Proteins); err == nil {
		p.Residues = s.Residues
	}
	return p
}

// logDiagram prints the model and sample lineages side by side at debug level.
func (r *Run) logDiagram(ctx context.Context, p *Prediction, sample models.Lineage) {
	if r.deps.Catalog == nil || p.ModelID == "" {
		return
	}
	if !logging.IsLevelEnabled(zerolog.DebugLevel) {
		return
	}
	modelLineage, ok := r.deps.Catalog.Lineage(p.ModelID)
	if !ok {
		return
	}
	width := r.cfg.DiagramWidth
	if width <= 0 {
		width = report.TerminalWidth()
	}
	logging.Ctx(ctx).Debug().Str("model", p.ModelID).Msg(report.LineageDiagram(modelLineage, sample, width))
}
