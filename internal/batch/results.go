// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/genecascade/internal/report"
)

// writeOutputs writes the lineage table and the JSON results of res.
func (c *Coordinator) writeOutputs(res *Result) error {
	if err := report.WriteLineagesFile(filepath.Join(c.cfg.OutDir, LineageFile), res.Lineages()); err != nil {
		return fmt.Errorf("write lineages: %w", err)
	}
	if err := WriteResults(filepath.Join(c.cfg.OutDir, ResultsFile), res); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// Lineages lists the lineage of every successful sample.
func (r *Result) Lineages() []report.LineageEntry {
	var out []report.LineageEntry
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			continue
		}
		out = append(out, report.LineageEntry{Sample: o.Sample, Lineage: o.Lineage})
	}
	return out
}

// Rows converts the outcomes into summary table rows.
func (r *Result) Rows() []report.Row {
	rows := make([]report.Row, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		rows = append(rows, o.SummaryRow())
	}
	return rows
}

// WriteResults writes res as indented JSON via a temporary file and rename.
func WriteResults(path string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
