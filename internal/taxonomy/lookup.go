// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package taxonomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/genecascade/internal/models"
)

var (
	// ErrLookupMiss reports a taxid unknown to the taxonomy source.
	ErrLookupMiss = errors.New("taxid not found")

	// ErrNotImported is returned by a store that has never been populated.
	ErrNotImported = errors.New("taxonomy store is empty; run 'genecascade taxonomy import'")
)

// Source resolves a taxid to its root-to-leaf lineage.
// A miss is reported with ok == false and a nil error.
type Source interface {
	Lineage(ctx context.Context, taxid int) (lineage models.Lineage, ok bool, err error)
}

// Lookup is the result of resolving one taxid. A miss is a normal outcome,
// not an error.
type Lookup struct {
	TaxID   int
	Lineage models.Lineage
	Found   bool
	err     error
}

// OK reports whether the taxid resolved to a lineage.
func (l Lookup) OK() bool { return l.Found && l.err == nil }

// Err returns ErrLookupMiss for a miss, the source error for a failed lookup,
// or nil.
func (l Lookup) Err() error {
	if l.err != nil {
		return l.err
	}
	if !l.Found {
		return fmt.Errorf("%w: %d", ErrLookupMiss, l.TaxID)
	}
	return nil
}

// MapSource is an in-memory Source keyed by taxid.
type MapSource map[int]models.Lineage

// Lineage implements Source.
func (m MapSource) Lineage(_ context.Context, taxid int) (models.Lineage, bool, error) {
	l, ok := m[taxid]
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

var _ Source = MapSource(nil)
