// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package classify

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
)

// PoolSeparator joins a sample name and a protein id in pooled queries.
const PoolSeparator = "|"

// ClassifyPooled classifies several proteomes with a single aligner call.
// inputs maps sample names to proteome paths. Query ids are prefixed with
// "<sample>|" and hits are split back by that prefix. Every input sample has
// an entry in the result, empty when nothing could be inferred.
func (c *Classifier) ClassifyPooled(ctx context.Context, inputs map[string]string, workdir string) (map[string]*Result, error) {
	names := slices.Sorted(maps.Keys(inputs))
	for _, name := range names {
		if strings.Contains(name, PoolSeparator) {
			return nil, fmt.Errorf("%w: sample name %q contains %q", models.ErrInvalidArgument, name, PoolSeparator)
		}
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, err
	}
	out := filepath.Join(workdir, ResultFile)

	queries := make(map[string]int, len(names))
	if fileExists(out) {
		logging.Ctx(ctx).Info().Str("hits", out).Msg("Pooled aligner output already exists")
		metrics.RecordToolSkipped("diamond")
	} else {
		var pooled []fasta.Record
		for _, name := range names {
			recs := c.subsample(ctx, inputs[name])
			queries[name] = len(recs)
			for _, r := range recs {
				r.ID = name + PoolSeparator + r.ID
				r.Desc = ""
				pooled = append(pooled, r)
			}
		}
		if len(pooled) == 0 {
			return emptyResults(names), nil
		}
		logging.Ctx(ctx).Info().Int("samples", len(names)).Int("queries", len(pooled)).Msg("Running pooled classification")
		if err := c.align(ctx, pooled, workdir); err != nil {
			return nil, err
		}
	}

	hits, err := ParseHitsFile(out)
	if err != nil {
		return nil, fmt.Errorf("parse pooled aligner output: %w", err)
	}

	bySample := make(map[string][]QueryHits, len(names))
	for _, h := range hits {
		name, id, ok := strings.Cut(h.Query, PoolSeparator)
		if !ok {
			logging.Ctx(ctx).Debug().Str("query", h.Query).Msg("Skipping unprefixed pooled query")
			continue
		}
		if _, known := inputs[name]; !known {
			continue
		}
		h.Query = id
		bySample[name] = append(bySample[name], h)
	}

	results := emptyResults(names)
	for _, name := range names {
		res := c.vote(ctx, bySample[name])
		res.Queries = queries[name]
		results[name] = res
	}
	return results, nil
}

func emptyResults(names []string) map[string]*Result {
	out := make(map[string]*Result, len(names))
	for _, n := range names {
		out[n] = &Result{Lineage: models.Lineage{}, Proteins: map[string]models.Lineage{}}
	}
	return out
}
