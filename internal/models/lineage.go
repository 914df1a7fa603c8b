// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Lineage is an ordered list of taxonomic identifiers from root to leaf.
// An empty Lineage is a valid "unknown".
type Lineage []int

// Len returns the depth of the lineage.
func (l Lineage) Len() int { return len(l) }

// Empty reports whether the lineage carries no taxonomic information.
func (l Lineage) Empty() bool { return len(l) == 0 }

// Leaf returns the deepest taxid, or 0 for an empty lineage.
func (l Lineage) Leaf() int {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1]
}

// Contains reports whether taxid occurs anywhere in the lineage.
func (l Lineage) Contains(taxid int) bool {
	for _, id := range l {
		if id == taxid {
			return true
		}
	}
	return false
}

// Equal reports whether two lineages hold the same ids in the same order.
func (l Lineage) Equal(other Lineage) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (l Lineage) Clone() Lineage {
	if l == nil {
		return nil
	}
	out := make(Lineage, len(l))
	copy(out, l)
	return out
}

// Join renders the lineage with the given separator.
func (l Lineage) Join(sep string) string {
	parts := make([]string, len(l))
	for i, id := range l {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}

// String renders the lineage in the dash-separated catalog notation.
func (l Lineage) String() string {
	return l.Join("-")
}

// ParseLineage parses a separator-delimited list of taxids.
// Blank input yields an empty lineage.
func ParseLineage(s, sep string) (Lineage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Lineage{}, nil
	}
	fields := strings.Split(s, sep)
	out := make(Lineage, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%w: taxid %q: %v", ErrInvalidArgument, f, err)
		}
		out = append(out, id)
	}
	return out, nil
}
