// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/genecascade/internal/coords"
	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/metrics"
)

// Hybrid output names.
const (
	HybridProteins  = "proteins.faa"
	HybridLocations = "genes.bed"
)

// HybridMerge adds secondary proteins on contigs the primary prediction did
// not cover. A protein's contig is its id without the trailing "_<token>".
// When the secondary prediction contributes no new contig the primary is
// returned unchanged with a count of zero; otherwise the merged proteome and
// gene locations are written to dir.
func HybridMerge(primary, secondary *Prediction, dir string) (*Prediction, int, error) {
	prim, err := fasta.ReadFile(primary.Proteins)
	if err != nil {
		return nil, 0, fmt.Errorf("read primary proteins: %w", err)
	}
	sec, err := fasta.ReadFile(secondary.Proteins)
	if err != nil {
		return nil, 0, fmt.Errorf("read secondary proteins: %w", err)
	}

	covered := make(map[string]struct{}, len(prim))
	for _, rec := range prim {
		covered[coords.ContigOf(rec.ID)] = struct{}{}
	}

	unique := make(map[string]struct{})
	var extra []fasta.Record
	for _, rec := range sec {
		contig := coords.ContigOf(rec.ID)
		if _, ok := covered[contig]; ok {
			continue
		}
		unique[contig] = struct{}{}
		extra = append(extra, rec)
	}
	if len(extra) == 0 {
		return primary, 0, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, 0, err
	}
	merged := &Prediction{
		Route:     RouteHybrid,
		ModelID:   primary.ModelID,
		Proteins:  filepath.Join(dir, HybridProteins),
		Locations: filepath.Join(dir, HybridLocations),
	}

	recs := append(append(make([]fasta.Record, 0, len(prim)+len(extra)), prim...), extra...)
	if err := fasta.WriteFile(merged.Proteins, recs, fasta.LineWidth); err != nil {
		return nil, 0, fmt.Errorf("write merged proteins: %w", err)
	}
	for _, rec := range recs {
		merged.Residues += len(rec.Seq)
	}

	primBED, err := coords.ReadBEDFile(primary.Locations)
	if err != nil {
		return nil, 0, fmt.Errorf("read primary locations: %w", err)
	}
	secBED, err := coords.ReadBEDFile(secondary.Locations)
	if err != nil {
		return nil, 0, fmt.Errorf("read secondary locations: %w", err)
	}
	bed := append(make([]coords.BEDRecord, 0, len(primBED)+len(secBED)), primBED...)
	for _, b := range secBED {
		if _, ok := unique[b.Chrom]; ok {
			bed = append(bed, b)
		}
	}
	if err := coords.WriteBEDFile(merged.Locations, bed); err != nil {
		return nil, 0, fmt.Errorf("write merged locations: %w", err)
	}

	metrics.HybridMergedSequences.Add(float64(len(extra)))
	return merged, len(extra), nil
}
