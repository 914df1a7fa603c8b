// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/genecascade/internal/batch"
	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/config"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/predict"
	"github.com/tomtom215/genecascade/internal/resultcache"
	"github.com/tomtom215/genecascade/internal/taxonomy"
	"github.com/tomtom215/genecascade/internal/tools"
)

// pipeline holds the collaborators shared by prediction commands.
type pipeline struct {
	primary    *tools.GeneMark
	secondary  *tools.Prodigal
	catalog    *catalog.Catalog
	cache      *resultcache.Cache
	classifier *classify.Classifier
	store      *taxonomy.Store
	resolver   *taxonomy.Resolver
}

// openPipeline wires tools, catalog, cache and classifier from cfg.
func openPipeline(cfg *config.Config) (*pipeline, error) {
	store, err := taxonomy.OpenStore(taxonomy.StoreConfig{Path: cfg.Taxonomy.DBPath, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w (run 'genecascade taxonomy import' first)", err)
	}
	if _, err := store.Meta(); err != nil {
		_ = store.Close()
		return nil, err
	}

	runner := tools.NewExecRunner(0)
	resolver := taxonomy.NewResolver(store, cfg.Taxonomy.CacheSize)
	classifier, err := classify.New(cfg.Classifier(), tools.NewDiamond(cfg.Diamond(), runner), resolver)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	p := &pipeline{
		primary:    tools.NewGeneMark(cfg.GeneMark(), runner),
		classifier: classifier,
		store:      store,
		resolver:   resolver,
	}
	if cfg.Secondary.Enabled {
		p.secondary = tools.NewProdigal(cfg.Prodigal(), runner)
	}
	if cfg.Catalog.Enabled {
		p.catalog = catalog.New(catalog.NewHTTPClient(cfg.CatalogClient()), catalog.WithCandidates(cfg.Catalog.Candidates))
	}
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = config.DefaultCacheDir()
		}
		if p.cache, err = resultcache.New(dir); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	logging.Debug().
		Bool("secondary", p.secondary != nil).
		Bool("catalog", p.catalog != nil).
		Bool("cache", p.cache != nil).
		Str("taxonomy", cfg.Taxonomy.DBPath).
		Msg("Pipeline ready")
	return p, nil
}

// runDeps returns per-sample dependencies. Disabled collaborators stay nil
// interfaces rather than typed nil pointers.
func (p *pipeline) runDeps() predict.Deps {
	d := predict.Deps{Primary: p.primary}
	if p.secondary != nil {
		d.Secondary = p.secondary
	}
	if p.catalog != nil {
		d.Catalog = p.catalog
	}
	if p.cache != nil {
		d.Cache = p.cache
	}
	return d
}

// batchDeps returns batch dependencies with the same nil handling as runDeps.
func (p *pipeline) batchDeps() batch.Deps {
	rd := p.runDeps()
	return batch.Deps{
		Primary:    rd.Primary,
		Secondary:  rd.Secondary,
		Catalog:    rd.Catalog,
		Cache:      rd.Cache,
		Classifier: p.classifier,
	}
}

// Close logs lineage cache counters and releases the taxonomy store.
func (p *pipeline) Close() error {
	s := p.resolver.Stats()
	logging.Info().
		Int64("hits", s.Hits).
		Int64("misses", s.Misses).
		Int64("evictions", s.Evictions).
		Int("size", s.Size).
		Float64("hit_rate", s.HitRate()).
		Msg("Taxonomy lineage cache")
	return p.store.Close()
}

// writeMetricsTextfile dumps the default registry for node_exporter's
// textfile collector. Empty path is a no-op.
func writeMetricsTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	logging.Debug().Str("path", path).Msg("Metrics written")
	return nil
}

// joinClose appends a close error to err.
func joinClose(err error, closer interface{ Close() error }) error {
	return errors.Join(err, closer.Close())
}
