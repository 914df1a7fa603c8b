// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"
)

// DiamondLog is the aligner log written next to the result table.
const DiamondLog = "diamond.log"

// DiamondOutputColumns is the tabular layout requested from the aligner.
var DiamondOutputColumns = []string{"qseqid", "sseqid", "pident", "evalue", "bitscore", "staxids"}

// ErrNoDatabase is returned when no reference database is configured.
var ErrNoDatabase = errors.New("no aligner database configured")

// DiamondConfig configures the DIAMOND blastp adapter.
type DiamondConfig struct {
	Command       string
	Database      string
	Threads       int
	EValue        float64
	MaxTargetSeqs int
	Timeout       time.Duration
}

// Diamond aligns protein queries against a taxonomy-aware reference database.
type Diamond struct {
	cfg    DiamondConfig
	runner Runner
}

// NewDiamond creates a Diamond adapter.
func NewDiamond(cfg DiamondConfig, runner Runner) *Diamond {
	if cfg.Command == "" {
		cfg.Command = "diamond"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.EValue <= 0 {
		cfg.EValue = 1e-20
	}
	if cfg.MaxTargetSeqs <= 0 {
		cfg.MaxTargetSeqs = 3
	}
	return &Diamond{cfg: cfg, runner: runner}
}

// Args returns the blastp argument list for query and out.
func (d *Diamond) Args(query, out string) []string {
	args := []string{
		"blastp",
		"--db", d.cfg.Database,
		"-q", query,
		"-p", strconv.Itoa(d.cfg.Threads),
		"--evalue", strconv.FormatFloat(d.cfg.EValue, 'g', -1, 64),
		"--max-target-seqs", strconv.Itoa(d.cfg.MaxTargetSeqs),
		"--outfmt", "6",
	}
	args = append(args, DiamondOutputColumns...)
	return append(args, "-o", out)
}

// Align runs blastp for query and writes the hit table to out.
func (d *Diamond) Align(ctx context.Context, query, out string) error {
	if d.cfg.Database == "" {
		return ErrNoDatabase
	}
	return d.runner.Run(ctx, Command{
		Tool:    "diamond",
		Path:    d.cfg.Command,
		Args:    d.Args(query, out),
		Dir:     filepath.Dir(out),
		LogFile: filepath.Join(filepath.Dir(out), DiamondLog),
		Timeout: d.cfg.Timeout,
	})
}
