// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tomtom215/genecascade/internal/models"
)

// Row is one sample in the batch summary.
type Row struct {
	Sample   string
	Route    string
	ModelID  string
	Proteins int
	Lineage  models.Lineage
	Error    string
}

// Mode selects the summary rendering.
type Mode int

const (
	ASCII Mode = iota
	Markdown
)

// RenderSummary writes a table of per-sample outcomes.
func RenderSummary(w io.Writer, rows []Row, mode Mode) error {
	t := table.NewWriter()
	if mode == ASCII {
		t.SetStyle(table.StyleLight)
	}
	// Footers keep their case.
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Sample", "Route", "Model", "Proteins", "Lineage", "Error"})

	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
		t.AppendRow(table.Row{r.Sample, r.Route, r.ModelID, r.Proteins, r.Lineage.Join("-"), r.Error})
	}
	t.AppendFooter(table.Row{"Total", len(rows), "", "", "", fmt.Sprintf("%d failed", failed)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
		{Number: 6, WidthMax: 40},
	})

	var out string
	if mode == Markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

// LineageEntry pairs a sample with its inferred lineage.
type LineageEntry struct {
	Sample  string
	Lineage models.Lineage
}

// WriteLineages writes "<sample>\t<dash-joined lineage>" lines.
func WriteLineages(w io.Writer, entries []LineageEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", e.Sample, e.Lineage.Join("-")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteLineagesFile writes the lineage table to path via temp file and rename.
func WriteLineagesFile(path string, entries []LineageEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := WriteLineages(tmp, entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
