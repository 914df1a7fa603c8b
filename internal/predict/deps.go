// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"context"

	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/resultcache"
	"github.com/tomtom215/genecascade/internal/tools"
)

// PrimaryPredictor is the eukaryotic gene predictor.
type PrimaryPredictor interface {
	SelfTrain(ctx context.Context, sequence, dir string) (tools.PrimaryResult, error)
	Predict(ctx context.Context, sequence, model, dir string) (tools.PrimaryResult, error)
}

// SecondaryPredictor is the prokaryotic gene predictor.
type SecondaryPredictor interface {
	Predict(ctx context.Context, sequence, dir string) (tools.SecondaryResult, error)
}

// ModelCatalog selects and downloads taxonomically matched models.
type ModelCatalog interface {
	Info(ctx context.Context) (catalog.Info, error)
	Refine(ctx context.Context, observed models.Lineage, dir string) ([]catalog.Model, error)
	Lineage(id string) (models.Lineage, bool)
}

// ResultCache stores finished predictions by input content.
type ResultCache interface {
	Exists(source string) (bool, error)
	Restore(source, dest string, kind resultcache.Kind) (resultcache.RestoreStatus, error)
	Store(source, proteins, locations string) error
}

// Classifier infers the lineage of a proteome.
type Classifier interface {
	Classify(ctx context.Context, proteome, workdir string) (*classify.Result, error)
}

// Deps are the collaborators of a Run. Primary is required; a nil
// Secondary, Catalog or Cache disables the corresponding step.
type Deps struct {
	Primary   PrimaryPredictor
	Secondary SecondaryPredictor
	Catalog   ModelCatalog
	Cache     ResultCache
}

// DefaultPrimaryDomains holds Eukaryota, the domain the primary predictor
// is built for.
var DefaultPrimaryDomains = []int{2759}

// Output names the files a finished run writes.
type Output struct {
	Proteins  string
	Locations string
}

// Config describes one sample's run.
type Config struct {
	Sample models.Sample

	// StageOneModels is scanned for *.mod files when self-training fails.
	StageOneModels string

	// CollectedModels receives a successful self-trained model as
	// <sample>.mod. Empty disables harvesting.
	CollectedModels string

	// DownloadDir receives catalog models. Empty uses <workdir>/models.
	DownloadDir string

	// PrimaryDomains are the taxids a borrowed-model lineage must contain to
	// skip the secondary predictor.
	PrimaryDomains []int

	// Output receives the final proteome and gene locations. Empty paths
	// leave the results in the work directory.
	Output Output

	// DiagramWidth bounds the lineage comparison printed at debug level.
	DiagramWidth int
}
