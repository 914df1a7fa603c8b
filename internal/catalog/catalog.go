// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package catalog selects and downloads pre-trained gene models that match
// an observed lineage.
//
// The remote catalog publishes an info.csv index with one model per row:
//
//	<model id>,<unused>,<dash-separated lineage>
//
// and the model bytes under models/<id>.mod.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
)

// DefaultCandidates is the number of models fetched per refinement.
const DefaultCandidates = 3

var (
	// ErrNoCandidates means the catalog holds no models to score.
	ErrNoCandidates = errors.New("no candidate models")

	// ErrZeroModelsAvailable means candidates existed but none could be
	// obtained.
	ErrZeroModelsAvailable = errors.New("zero models available")

	// ErrCatalogUnavailable means the catalog index could not be fetched.
	ErrCatalogUnavailable = errors.New("model catalog unavailable")
)

// Model is a gene model on local disk.
type Model struct {
	ID      string         `json:"id"`
	Path    string         `json:"path"`
	Lineage models.Lineage `json:"lineage,omitempty"`
}

// Info maps model ids to the lineage the model was trained on.
type Info map[string]models.Lineage

// ParseInfo reads a catalog index. Rows that do not have exactly three
// fields, whose id is not a plain file name, or whose lineage is not a
// dash-separated list of integers are skipped with a warning.
func ParseInfo(r io.Reader) (Info, error) {
	info := make(Info)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			logging.Warn().Int("line", lineNo).Msg("Skipping malformed catalog row")
			continue
		}
		id := strings.TrimSpace(fields[0])
		if !validID(id) {
			logging.Warn().Int("line", lineNo).Str("model", id).Msg("Skipping catalog row with invalid model id")
			continue
		}
		lng, err := models.ParseLineage(fields[2], "-")
		if err != nil {
			logging.Warn().Err(err).Int("line", lineNo).Str("model", id).Msg("Skipping catalog row with invalid lineage")
			continue
		}
		info[id] = lng
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog index: %w", err)
	}
	return info, nil
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, "/\\")
}

// Score counts positions where both lineages have an entry and agree. The
// comparison is positional, not prefix based: a later coincidental match
// counts even after an earlier mismatch.
func Score(model, observed models.Lineage) int {
	n := min(len(model), len(observed))
	score := 0
	for i := 0; i < n; i++ {
		if model[i] == observed[i] {
			score++
		}
	}
	return score
}

// ScoreModels returns every model tied at the highest score, sorted by id.
// When no model matches any position the whole catalog ties at zero. Only an
// empty catalog yields ErrNoCandidates.
func ScoreModels(info Info, observed models.Lineage) ([]string, error) {
	if len(info) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrNoCandidates)
	}
	best := -1
	var ids []string
	for id, lng := range info {
		s := Score(lng, observed)
		switch {
		case s > best:
			best = s
			ids = append(ids[:0], id)
		case s == best:
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// SelectCandidates returns ids unchanged when there are at most n of them,
// otherwise n ids sampled uniformly without replacement.
func SelectCandidates(ids []string, n int, rng *rand.Rand) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: candidate count must be positive, got %d", models.ErrInvalidArgument, n)
	}
	if len(ids) <= n {
		return slices.Clone(ids), nil
	}
	shuffled := slices.Clone(ids)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n], nil
}
