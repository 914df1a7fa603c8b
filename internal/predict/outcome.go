// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/report"
)

// Outcome is the result of a terminal run.
type Outcome struct {
	Sample         string         `json:"sample"`
	Source         string         `json:"source"`
	Stage          Stage          `json:"stage"`
	Route          Route          `json:"route,omitempty"`
	ModelID        string         `json:"model_id,omitempty"`
	Proteins       string         `json:"proteins,omitempty"`
	Locations      string         `json:"locations,omitempty"`
	Residues       int            `json:"residues"`
	Lineage        models.Lineage `json:"lineage"`
	NeedsSecondary bool           `json:"needs_secondary"`
	Trace          []StageEvent   `json:"trace"`
	Error          string         `json:"error,omitempty"`

	Err error `json:"-"`
}

// Succeeded reports whether the run finished with a prediction.
func (o *Outcome) Succeeded() bool { return o.Stage == StageDone }

// SummaryRow converts the outcome into a summary table row, counting the
// proteins of the final proteome.
func (o *Outcome) SummaryRow() report.Row {
	row := report.Row{
		Sample:  o.Sample,
		Route:   string(o.Route),
		ModelID: o.ModelID,
		Lineage: o.Lineage,
		Error:   o.Error,
	}
	if o.Proteins != "" {
		if s, err := fasta.Summarize(o.Proteins); err == nil {
			row.Proteins = s.Records
		}
	}
	return row
}
