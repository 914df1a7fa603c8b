// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package classify assigns a consensus lineage to a predicted proteome by
// aligning a random subsample of its proteins against a taxonomy-aware
// reference database.
package classify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/taxonomy"
)

// File names inside a classification work directory.
const (
	QueryFile  = "diamond.query.faa"
	ResultFile = "diamond.results.tsv"
)

// DefaultSampleSize is the number of proteins aligned per proteome.
const DefaultSampleSize = 200

// Aligner writes a tabular hit file for a protein query.
type Aligner interface {
	Align(ctx context.Context, query, out string) error
}

// LineageResolver turns taxids into lineages, dropping unknown ids.
type LineageResolver interface {
	ResolveAll(ctx context.Context, taxids []int) []models.Lineage
}

// Config configures a Classifier.
type Config struct {
	// SampleSize is the number of proteins aligned per proteome. Zero uses
	// DefaultSampleSize.
	SampleSize int

	// Fraction is the consensus threshold. Zero uses taxonomy.DefaultFraction.
	Fraction float64

	// Seed makes subsampling reproducible when non-zero.
	Seed uint64
}

// Result is the outcome of classifying one proteome.
type Result struct {
	// Lineage is the consensus over all per-protein lineages.
	Lineage models.Lineage `json:"lineage"`

	// Proteins holds the per-protein consensus for each query with hits.
	Proteins map[string]models.Lineage `json:"-"`

	// Queries is the number of proteins submitted to the aligner.
	Queries int `json:"queries"`
}

// Classifier runs subsample, align, resolve and vote.
type Classifier struct {
	aligner    Aligner
	resolver   LineageResolver
	sampleSize int
	fraction   float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Classifier.
func New(cfg Config, aligner Aligner, resolver LineageResolver) (*Classifier, error) {
	if cfg.SampleSize < 0 {
		return nil, fmt.Errorf("%w: sample size %d", models.ErrInvalidArgument, cfg.SampleSize)
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.Fraction == 0 {
		cfg.Fraction = taxonomy.DefaultFraction
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Classifier{
		aligner:    aligner,
		resolver:   resolver,
		sampleSize: cfg.SampleSize,
		fraction:   cfg.Fraction,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// subsample reads a proteome and draws the query set. An unreadable or
// empty proteome yields no records.
func (c *Classifier) subsample(ctx context.Context, proteome string) []fasta.Record {
	recs, err := fasta.ReadFile(proteome)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("proteome", proteome).Msg("Could not read proteome for classification")
		return nil
	}
	withSeq := recs[:0]
	for _, r := range recs {
		if len(r.Seq) > 0 {
			withSeq = append(withSeq, r)
		}
	}
	if len(withSeq) == 0 {
		logging.Ctx(ctx).Warn().Str("proteome", proteome).Msg("Proteome contains no sequences")
		return nil
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return fasta.Subsample(withSeq, c.sampleSize, c.rng)
}

// Classify infers the lineage of one proteome. Work files go to workdir; an
// existing result file there is reused without running the aligner.
func (c *Classifier) Classify(ctx context.Context, proteome, workdir string) (*Result, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, err
	}
	out := filepath.Join(workdir, ResultFile)

	queries := 0
	if fileExists(out) {
		logging.Ctx(ctx).Info().Str("hits", out).Msg("Aligner output already exists")
		metrics.RecordToolSkipped("diamond")
	} else {
		recs := c.subsample(ctx, proteome)
		if len(recs) == 0 {
			return &Result{Lineage: models.Lineage{}}, nil
		}
		queries = len(recs)
		if err := c.align(ctx, recs, workdir); err != nil {
			return nil, err
		}
	}

	hits, err := ParseHitsFile(out)
	if err != nil {
		return nil, fmt.Errorf("parse aligner output: %w", err)
	}
	res := c.vote(ctx, hits)
	res.Queries = queries
	logging.Ctx(ctx).Info().
		Int("queries", queries).
		Int("proteins_with_hits", len(res.Proteins)).
		Str("lineage", res.Lineage.String()).
		Msg("Classified proteome")
	return res, nil
}

func (c *Classifier) align(ctx context.Context, recs []fasta.Record, workdir string) error {
	query := filepath.Join(workdir, QueryFile)
	if err := fasta.WriteFile(query, recs, fasta.LineWidth); err != nil {
		return fmt.Errorf("write query: %w", err)
	}
	metrics.ClassificationQueries.Observe(float64(len(recs)))
	if err := c.aligner.Align(ctx, query, filepath.Join(workdir, ResultFile)); err != nil {
		return fmt.Errorf("align: %w", err)
	}
	return nil
}

// vote resolves every query's taxids, takes the per-protein consensus and
// then the consensus over proteins.
func (c *Classifier) vote(ctx context.Context, hits []QueryHits) *Result {
	res := &Result{Proteins: make(map[string]models.Lineage, len(hits))}
	perProtein := make([]models.Lineage, 0, len(hits))
	for _, h := range hits {
		lng := taxonomy.MajorityVote(c.resolver.ResolveAll(ctx, h.TaxIDs), c.fraction)
		res.Proteins[h.Query] = lng
		perProtein = append(perProtein, lng)
	}
	res.Lineage = taxonomy.MajorityVote(perProtein, c.fraction)
	return res
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
