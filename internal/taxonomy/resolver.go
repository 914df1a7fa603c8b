// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package taxonomy

import (
	"context"

	"github.com/tomtom215/genecascade/internal/cache"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
)

// DefaultCacheSize bounds the number of memoised lineages per resolver.
const DefaultCacheSize = 100000

// Resolver memoises Source lookups for the lifetime of one run.
// It is safe for concurrent use and is passed explicitly to classifiers.
type Resolver struct {
	source Source
	hits   *cache.LRU[int, models.Lineage]
	misses *cache.LRU[int, struct{}]
}

// NewResolver wraps source with an LRU of the given size.
func NewResolver(source Source, size int) *Resolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Resolver{
		source: source,
		hits:   cache.NewLRU[int, models.Lineage](size, 0),
		misses: cache.NewLRU[int, struct{}](size/10+1, 0),
	}
}

// Resolve looks up taxid, consulting the cache first. Unknown taxids are
// remembered so that repeated misses do not reach the source again.
func (r *Resolver) Resolve(ctx context.Context, taxid int) Lookup {
	if l, ok := r.hits.Get(taxid); ok {
		metrics.TaxonomyLookups.WithLabelValues("cache_hit").Inc()
		return Lookup{TaxID: taxid, Lineage: l, Found: true}
	}
	if _, ok := r.misses.Get(taxid); ok {
		metrics.TaxonomyLookups.WithLabelValues("miss").Inc()
		return Lookup{TaxID: taxid}
	}

	l, ok, err := r.source.Lineage(ctx, taxid)
	switch {
	case err != nil:
		metrics.TaxonomyLookups.WithLabelValues("error").Inc()
		return Lookup{TaxID: taxid, err: err}
	case !ok:
		metrics.TaxonomyLookups.WithLabelValues("miss").Inc()
		r.misses.Add(taxid, struct{}{})
		logging.Debug().Int("taxid", taxid).Msg("Taxid not found in taxonomy")
		return Lookup{TaxID: taxid}
	default:
		metrics.TaxonomyLookups.WithLabelValues("store_hit").Inc()
		r.hits.Add(taxid, l)
		return Lookup{TaxID: taxid, Lineage: l, Found: true}
	}
}

// ResolveAll resolves taxids in order and returns the lineages that were
// found. Misses and failed lookups are logged and dropped.
func (r *Resolver) ResolveAll(ctx context.Context, taxids []int) []models.Lineage {
	out := make([]models.Lineage, 0, len(taxids))
	for _, id := range taxids {
		lk := r.Resolve(ctx, id)
		if !lk.OK() {
			if lk.err != nil {
				logging.Ctx(ctx).Warn().Err(lk.err).Int("taxid", id).Msg("Taxonomy lookup failed")
			}
			continue
		}
		out = append(out, lk.Lineage)
	}
	return out
}

// Stats reports the hit cache statistics.
func (r *Resolver) Stats() cache.Stats {
	return r.hits.Stats()
}
