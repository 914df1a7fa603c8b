// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"sync"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
)

// Catalog chooses and obtains models for an observed lineage. It is safe
// for concurrent use; the index is fetched at most once successfully.
type Catalog struct {
	source     Source
	candidates int

	infoMu sync.Mutex
	info   Info

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCandidates sets how many models Refine tries to obtain.
func WithCandidates(n int) Option {
	return func(c *Catalog) { c.candidates = n }
}

// WithRand sets the random source used to sample candidates.
func WithRand(rng *rand.Rand) Option {
	return func(c *Catalog) { c.rng = rng }
}

// New creates a Catalog over source.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source:     source,
		candidates: DefaultCandidates,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Info returns the catalog index, fetching it on first successful use.
// Failures are not cached.
func (c *Catalog) Info(ctx context.Context) (Info, error) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()

	if c.info != nil {
		return c.info, nil
	}
	info, err := c.source.FetchInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	logging.Info().Int("models", len(info)).Msg("Loaded model catalog")
	c.info = info
	return info, nil
}

// Refine scores the catalog against observed, samples candidates and
// downloads them into dir. A candidate that cannot be downloaded is replaced
// by an untried model from the same tied set until the target count is met
// or the set is exhausted.
func (c *Catalog) Refine(ctx context.Context, observed models.Lineage, dir string) ([]Model, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	tied, err := ScoreModels(info, observed)
	if err != nil {
		return nil, err
	}

	c.rngMu.Lock()
	picked, err := SelectCandidates(tied, c.candidates, c.rng)
	reserve := c.reserve(tied, picked)
	c.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Strs("candidates", picked).
		Int("tied", len(tied)).
		Str("lineage", observed.String()).
		Msg("Selected catalog models")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	queue := picked
	var out []Model
	var failures []error
	for len(queue) > 0 && len(out) < c.candidates {
		id := queue[0]
		queue = queue[1:]

		path, err := c.source.FetchModel(ctx, id, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Ctx(ctx).Warn().Err(err).Str("model", id).Msg("Could not download model")
			failures = append(failures, err)
			if len(reserve) > 0 {
				queue = append(queue, reserve[0])
				reserve = reserve[1:]
			}
			continue
		}
		out = append(out, Model{ID: id, Path: path, Lineage: info[id].Clone()})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d candidates tried: %w", ErrZeroModelsAvailable, len(failures), errors.Join(failures...))
	}
	return out, nil
}

// reserve returns the tied ids not picked, in random order. Caller holds rngMu.
func (c *Catalog) reserve(tied, picked []string) []string {
	rest := make([]string, 0, len(tied))
	for _, id := range tied {
		if !slices.Contains(picked, id) {
			rest = append(rest, id)
		}
	}
	c.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	return rest
}

// Lineage returns the catalog lineage of a model id, if the index is loaded
// and knows it.
func (c *Catalog) Lineage(id string) (models.Lineage, bool) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	lng, ok := c.info[id]
	return lng, ok
}
