// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/genecascade/internal/coords"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
)

// Artifact names inside a Prodigal working directory.
const (
	SecondaryGFF       = "genes.gff"
	SecondaryProteins  = "proteins.faa"
	SecondaryLocations = "genes.bed"
	SecondaryLog       = "secondary.log"
)

// ProdigalConfig configures the Prodigal adapter.
type ProdigalConfig struct {
	Command string
	// Mode is passed to -p: "meta" or "single".
	Mode    string
	Timeout time.Duration
}

// SecondaryResult lists the artifacts of one secondary predictor run.
type SecondaryResult struct {
	Dir       string
	GFF       string
	Proteins  string
	Locations string
}

// Prodigal drives the prokaryotic gene predictor.
type Prodigal struct {
	cfg    ProdigalConfig
	runner Runner
}

// NewProdigal creates a Prodigal adapter.
func NewProdigal(cfg ProdigalConfig, runner Runner) *Prodigal {
	if cfg.Command == "" {
		cfg.Command = "prodigal"
	}
	if cfg.Mode == "" {
		cfg.Mode = "meta"
	}
	return &Prodigal{cfg: cfg, runner: runner}
}

// Predict runs Prodigal on sequence in dir. An existing protein file from an
// earlier run is reused without invoking the tool again.
func (p *Prodigal) Predict(ctx context.Context, sequence, dir string) (SecondaryResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return SecondaryResult{}, err
	}
	seq, err := filepath.Abs(sequence)
	if err != nil {
		return SecondaryResult{}, err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return SecondaryResult{}, err
	}

	res := SecondaryResult{
		Dir:       absDir,
		GFF:       filepath.Join(absDir, SecondaryGFF),
		Proteins:  filepath.Join(absDir, SecondaryProteins),
		Locations: filepath.Join(absDir, SecondaryLocations),
	}

	if fileExists(res.Proteins) {
		metrics.RecordToolSkipped("prodigal")
		logging.Ctx(ctx).Info().Str("proteins", res.Proteins).Msg("Secondary prediction already present, skipping")
	} else {
		err := p.runner.Run(ctx, Command{
			Tool:    "prodigal",
			Path:    p.cfg.Command,
			Args:    []string{"-i", seq, "-p", p.cfg.Mode, "-f", "gff", "-o", res.GFF, "-a", res.Proteins},
			Dir:     absDir,
			LogFile: filepath.Join(absDir, SecondaryLog),
			Timeout: p.cfg.Timeout,
		})
		if err != nil {
			return res, err
		}
	}

	if fileExists(res.GFF) && !fileExists(res.Locations) {
		genes, err := coords.ReadGFFFile(res.GFF)
		if err != nil {
			return res, fmt.Errorf("convert prodigal coordinates: %w", err)
		}
		if err := coords.WriteBEDFile(res.Locations, coords.GenesToBED(genes, nil)); err != nil {
			return res, err
		}
	}
	return res, nil
}
