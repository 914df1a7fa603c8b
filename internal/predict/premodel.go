// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/tools"
)

// modelRef is a model file and the id it is known by.
type modelRef struct {
	ID   string
	Path string
}

// listModels returns the *.mod files of dir sorted by id. A missing
// directory holds no models.
func listModels(dir string) ([]modelRef, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var refs []modelRef
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mod") {
			continue
		}
		refs = append(refs, modelRef{
			ID:   strings.TrimSuffix(e.Name(), ".mod"),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	slices.SortFunc(refs, func(a, b modelRef) int { return strings.Compare(a.ID, b.ID) })
	return refs, nil
}

// primarySucceeded reports whether a primary run left a GTF and a protein
// file whose first record carries sequence.
func primarySucceeded(ctx context.Context, res tools.PrimaryResult) bool {
	if res.GTF == "" || res.Proteins == "" {
		return false
	}
	if _, err := os.Stat(res.GTF); err != nil {
		return false
	}
	ok, err := fasta.HasSequence(res.Proteins)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("proteins", res.Proteins).Msg("Could not inspect predicted proteins")
		return false
	}
	return ok
}

// predictWithModels runs the primary predictor once per model, each in its
// own directory under stageDir, and returns the prediction with the most
// residues. Ties go to the lowest model id. Nil means no model produced
// proteins.
func (r *Run) predictWithModels(ctx context.Context, refs []modelRef, stageDir string, route Route) (*Prediction, error) {
	var best *Prediction
	for _, ref := range refs {
		dir := r.workPath(stageDir, ref.ID)
		res, err := r.deps.Primary.Predict(ctx, r.cfg.Sample.Sequence, ref.Path, dir)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("model", ref.ID).Msg("Prediction with model did not finish cleanly")
		}
		if !primarySucceeded(ctx, res) {
			continue
		}
		p := r.prediction(route, ref.ID, res)
		logging.Ctx(ctx).Debug().Str("model", ref.ID).Int("residues", p.Residues).Msg("Model produced proteins")
		if best == nil || p.Residues > best.Residues || (p.Residues == best.Residues && p.ModelID < best.ModelID) {
			best = p
		}
	}
	if best != nil {
		logging.Ctx(ctx).Info().Str("model", best.ModelID).Int("residues", best.Residues).Msg("Best model selected")
	}
	return best, nil
}
