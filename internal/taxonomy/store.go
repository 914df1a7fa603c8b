// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package taxonomy

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
)

// Key prefixes
const (
	prefixParent = "parent:"
	prefixMerged = "merged:"
	keyMeta      = "meta:import"
)

// maxDepth bounds parent walks so a corrupt dump cannot loop forever.
const maxDepth = 256

var (
	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("taxonomy store is closed")

	// ErrBrokenLineage reports a parent chain that does not reach the root.
	ErrBrokenLineage = errors.New("broken lineage chain")
)

// StoreConfig configures the badger-backed taxonomy store.
type StoreConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory only.
	InMemory bool

	// ReadOnly opens an existing database without write access.
	ReadOnly bool
}

// ImportMeta describes the last successful import.
type ImportMeta struct {
	ImportedAt time.Time `json:"imported_at"`
	Nodes      int       `json:"nodes"`
	Merged     int       `json:"merged"`
}

// Store persists the NCBI taxonomy tree (taxid -> parent and merged ids) in
// BadgerDB and rebuilds lineages on read.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// OpenStore opens (or creates) the taxonomy database.
func OpenStore(cfg StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.ReadOnly = cfg.ReadOnly && !cfg.InMemory

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func parentKey(taxid int) []byte { return []byte(prefixParent + strconv.Itoa(taxid)) }
func mergedKey(taxid int) []byte { return []byte(prefixMerged + strconv.Itoa(taxid)) }

func encodeID(id int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func getID(txn *badger.Txn, key []byte) (int, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt value for %s", key)
		}
		id = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return id, err == nil, err
}

// Lineage implements Source. Merged taxids are followed to their current id.
func (s *Store) Lineage(ctx context.Context, taxid int) (models.Lineage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var path []int
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		id := taxid
		if newID, ok, err := getID(txn, mergedKey(id)); err != nil {
			return err
		} else if ok {
			id = newID
		}

		for depth := 0; depth < maxDepth; depth++ {
			parent, ok, err := getID(txn, parentKey(id))
			if err != nil {
				return err
			}
			if !ok {
				if depth == 0 {
					return nil
				}
				return fmt.Errorf("%w: taxid %d has no node for ancestor %d", ErrBrokenLineage, taxid, id)
			}
			path = append(path, id)
			if parent == id {
				found = true
				return nil
			}
			id = parent
		}
		return fmt.Errorf("%w: taxid %d exceeds depth %d", ErrBrokenLineage, taxid, maxDepth)
	})
	if err != nil || !found {
		return nil, false, err
	}

	lineage := make(models.Lineage, len(path))
	for i, id := range path {
		lineage[len(path)-1-i] = id
	}
	return lineage, true, nil
}

// Import replaces the store contents with the given nodes.dmp and optional
// merged.dmp streams.
func (s *Store) Import(ctx context.Context, nodes, merged io.Reader) (ImportMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ImportMeta{}, ErrStoreClosed
	}

	if err := s.db.DropAll(); err != nil {
		return ImportMeta{}, fmt.Errorf("clear taxonomy store: %w", err)
	}

	meta := ImportMeta{}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	err := ParseNodes(nodes, func(n Node) error {
		if meta.Nodes%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		meta.Nodes++
		return wb.Set(parentKey(n.TaxID), encodeID(n.Parent))
	})
	if err != nil {
		return ImportMeta{}, fmt.Errorf("import nodes: %w", err)
	}

	if merged != nil {
		err = ParseMerged(merged, func(oldID, newID int) error {
			meta.Merged++
			return wb.Set(mergedKey(oldID), encodeID(newID))
		})
		if err != nil {
			return ImportMeta{}, fmt.Errorf("import merged: %w", err)
		}
	}

	meta.ImportedAt = time.Now().UTC()
	data, err := json.Marshal(meta)
	if err != nil {
		return ImportMeta{}, fmt.Errorf("marshal import meta: %w", err)
	}
	if err := wb.Set([]byte(keyMeta), data); err != nil {
		return ImportMeta{}, err
	}
	if err := wb.Flush(); err != nil {
		return ImportMeta{}, fmt.Errorf("flush taxonomy import: %w", err)
	}

	logging.Info().
		Int("nodes", meta.Nodes).
		Int("merged", meta.Merged).
		Msg("Taxonomy imported")
	return meta, nil
}

// Meta returns details of the last import, or ErrNotImported.
func (s *Store) Meta() (ImportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ImportMeta{}, ErrStoreClosed
	}

	var meta ImportMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotImported
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

var _ Source = (*Store)(nil)
