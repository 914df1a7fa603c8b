// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package taxonomy

import (
	"sync"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
)

// DefaultFraction is the share of lineages that must agree on a taxid for a
// consensus position to be accepted.
const DefaultFraction = 0.6

var weakFractionOnce sync.Once

// MajorityVote derives the consensus lineage of a set of lineages.
//
// Positions are visited from the root. At each position the most frequent
// taxid among lineages long enough to have that position is taken, and it is
// accepted only while count/len(lineages) >= fraction. The vote stops at the
// first position that fails. Ties are broken by the lowest taxid.
//
// An empty input yields an empty lineage. A fraction at or below 0.5 is
// accepted but allows two disagreeing majorities, so it is warned about.
func MajorityVote(lineages []models.Lineage, fraction float64) models.Lineage {
	if fraction <= 0.5 {
		weakFractionOnce.Do(func() {
			logging.Warn().
				Float64("fraction", fraction).
				Msg("Majority vote fraction <= 0.5 does not guarantee a unique majority")
		})
	}

	n := len(lineages)
	if n == 0 {
		return models.Lineage{}
	}

	depth := 0
	for _, l := range lineages {
		if len(l) > depth {
			depth = len(l)
		}
	}

	consensus := make(models.Lineage, 0, depth)
	counts := make(map[int]int)
	for pos := 0; pos < depth; pos++ {
		clear(counts)
		for _, l := range lineages {
			if pos < len(l) {
				counts[l[pos]]++
			}
		}

		best, bestCount := 0, 0
		for id, c := range counts {
			if c > bestCount || (c == bestCount && id < best) {
				best, bestCount = id, c
			}
		}

		if bestCount == 0 || float64(bestCount)/float64(n) < fraction {
			break
		}
		consensus = append(consensus, best)
	}

	return consensus
}
