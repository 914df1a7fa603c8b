// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoPrediction means neither predictor produced a usable proteome.
	ErrNoPrediction = errors.New("no prediction possible")

	// ErrAwaitingLineage is returned by Advance while the run waits for a
	// lineage to be supplied with ProvideLineage.
	ErrAwaitingLineage = errors.New("awaiting lineage")
)

// Stage names a state of the prediction cascade.
type Stage int

const (
	StageInit Stage = iota
	StageSelfTraining
	StagePreModel1
	StageTaxonomyEstimate
	StagePreModel2
	StageRefresh
	StageSecondary
	StageHybridMerge
	StageClassify
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageInit:             "init",
	StageSelfTraining:     "self_training",
	StagePreModel1:        "pre_model_1",
	StageTaxonomyEstimate: "taxonomy_estimate",
	StagePreModel2:        "pre_model_2",
	StageRefresh:          "refresh",
	StageSecondary:        "secondary",
	StageHybridMerge:      "hybrid_merge",
	StageClassify:         "classify",
	StageDone:             "done",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool { return s == StageDone || s == StageFailed }

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if strings.EqualFold(name, string(b)) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}

// Route records which path produced the final proteome.
type Route string

const (
	RouteNone        Route = ""
	RouteCache       Route = "cache"
	RouteSelfTrained Route = "self_trained"
	RouteStageOne    Route = "stage_one_model"
	RouteRefined     Route = "refined_model"
	RouteSecondary   Route = "secondary"
	RouteHybrid      Route = "hybrid"
)

// Borrowed reports whether the route used a model trained on another genome.
func (r Route) Borrowed() bool { return r == RouteStageOne || r == RouteRefined }
