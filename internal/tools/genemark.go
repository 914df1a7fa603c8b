// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tomtom215/genecascade/internal/coords"
	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/logging"
)

// Artifact names inside a GeneMark working directory.
const (
	GeneMarkGTF       = "genemark.gtf"
	GeneMarkRawFAA    = "prot_seq.faa"
	GeneMarkModel     = "output/gmhmm.mod"
	PrimaryProteins   = "proteins.faa"
	PrimaryLocations  = "genes.bed"
	PrimaryLog        = "primary.log"
	PrimaryConvertLog = "gtf2faa.log"
)

// GeneMarkConfig configures the GeneMark-ES adapter.
type GeneMarkConfig struct {
	Command      string
	GTFToProtein string
	Threads      int
	MinContig    int
	Fungus       bool
	ExtraArgs    []string
	Timeout      time.Duration
}

// PrimaryResult lists the artifacts of one primary predictor run. Paths are
// set whether or not the files were produced.
type PrimaryResult struct {
	Dir       string
	GTF       string
	Proteins  string
	Locations string
	// Model is the trained model file (self-training only).
	Model string
}

// GeneMark drives gmes_petap.pl and get_sequence_from_GTF.pl.
type GeneMark struct {
	cfg    GeneMarkConfig
	runner Runner
}

// NewGeneMark creates a GeneMark adapter.
func NewGeneMark(cfg GeneMarkConfig, runner Runner) *GeneMark {
	if cfg.Command == "" {
		cfg.Command = "gmes_petap.pl"
	}
	if cfg.GTFToProtein == "" {
		cfg.GTFToProtein = "get_sequence_from_GTF.pl"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	return &GeneMark{cfg: cfg, runner: runner}
}

func (g *GeneMark) baseArgs(sequence string) []string {
	args := []string{"--v"}
	if g.cfg.Fungus {
		args = append(args, "--fungus")
	}
	args = append(args, "--cores", strconv.Itoa(g.cfg.Threads))
	if g.cfg.MinContig > 0 {
		args = append(args, "--min_contig", strconv.Itoa(g.cfg.MinContig))
	}
	args = append(args, g.cfg.ExtraArgs...)
	return append(args, "--sequence", sequence)
}

// SelfTrain runs GeneMark-ES in self-training mode in dir.
func (g *GeneMark) SelfTrain(ctx context.Context, sequence, dir string) (PrimaryResult, error) {
	seq, err := filepath.Abs(sequence)
	if err != nil {
		return PrimaryResult{}, err
	}
	args := append([]string{"--ES"}, g.baseArgs(seq)...)
	res, err := g.run(ctx, args, seq, dir)
	res.Model = filepath.Join(res.Dir, GeneMarkModel)
	return res, err
}

// Predict runs GeneMark with a pre-trained model in dir.
func (g *GeneMark) Predict(ctx context.Context, sequence, model, dir string) (PrimaryResult, error) {
	seq, err := filepath.Abs(sequence)
	if err != nil {
		return PrimaryResult{}, err
	}
	mod, err := filepath.Abs(model)
	if err != nil {
		return PrimaryResult{}, err
	}
	args := append(g.baseArgs(seq), "--predict_with", mod)
	return g.run(ctx, args, seq, dir)
}

// run invokes the predictor and always attempts protein extraction, because a
// nominally failed run may still leave a usable GTF behind.
func (g *GeneMark) run(ctx context.Context, args []string, sequence, dir string) (PrimaryResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return PrimaryResult{}, err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return PrimaryResult{}, err
	}

	res := PrimaryResult{
		Dir:       absDir,
		GTF:       filepath.Join(absDir, GeneMarkGTF),
		Proteins:  filepath.Join(absDir, PrimaryProteins),
		Locations: filepath.Join(absDir, PrimaryLocations),
	}

	runErr := g.runner.Run(ctx, Command{
		Tool:    "genemark",
		Path:    g.cfg.Command,
		Args:    args,
		Dir:     absDir,
		LogFile: filepath.Join(absDir, PrimaryLog),
		Timeout: g.cfg.Timeout,
	})
	if runErr != nil {
		logging.Ctx(ctx).Warn().Err(runErr).Str("dir", absDir).Msg("GeneMark did not finish cleanly")
	}

	if !fileExists(res.GTF) {
		if runErr == nil {
			runErr = fmt.Errorf("genemark produced no %s", GeneMarkGTF)
		}
		return res, runErr
	}

	convErr := g.runner.Run(ctx, Command{
		Tool:    "gtf2faa",
		Path:    g.cfg.GTFToProtein,
		Args:    []string{GeneMarkGTF, sequence},
		Dir:     absDir,
		LogFile: filepath.Join(absDir, PrimaryConvertLog),
		Timeout: g.cfg.Timeout,
	})
	if convErr != nil {
		logging.Ctx(ctx).Warn().Err(convErr).Msg("Protein extraction from GTF failed")
	}

	if err := g.normalize(res); err != nil {
		return res, errors.Join(runErr, convErr, err)
	}
	return res, errors.Join(runErr, convErr)
}

// normalize renames proteins to "<contig>_<k>" and writes the BED file.
func (g *GeneMark) normalize(res PrimaryResult) error {
	byID, genes, err := coords.GTFAliasesFile(res.GTF)
	if err != nil {
		return err
	}
	names := coords.NumberByContig(genes)
	if err := coords.WriteBEDFile(res.Locations, coords.GenesToBED(genes, names)); err != nil {
		return fmt.Errorf("write gene locations: %w", err)
	}

	raw := filepath.Join(res.Dir, GeneMarkRawFAA)
	if !fileExists(raw) {
		return nil
	}
	recs, err := fasta.ReadFile(raw)
	if err != nil {
		return err
	}
	for i := range recs {
		if gene, ok := byID[recs[i].ID]; ok {
			recs[i].ID = names[gene.ID]
		}
		recs[i].Desc = ""
	}
	return fasta.WriteFile(res.Proteins, recs, fasta.LineWidth)
}
