// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package resultcache is a content-addressed store of finished predictions.
//
// Entries are keyed by the sha-256 of the input sequence file and laid out as
//
//	<root>/<h[0:2]>/<h[2:4]>/<h>/
//	    sha256.txt     manifest: "<artifact>\t<sha256>" per tracked file
//	    proteins.faa   predicted proteome
//	    locations.bed  predicted gene locations
//
// An entry exists only when all three files are present. The manifest is
// written last, via rename, and is the commit point of a store.
package resultcache

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
)

// Artifact file names inside an entry directory.
const (
	ManifestFile = "sha256.txt"
	ProteinFile  = "proteins.faa"
	LocationFile = "locations.bed"
)

// Kind selects which stored artifact Restore copies.
type Kind int

const (
	KindProtein Kind = iota + 1
	KindLocation
)

// ParseKind accepts "protein"/"faa" and "location"/"bed".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "protein", "proteins", "faa":
		return KindProtein, nil
	case "location", "locations", "bed":
		return KindLocation, nil
	}
	return 0, fmt.Errorf("%w: unknown artifact kind %q", models.ErrInvalidArgument, s)
}

func (k Kind) String() string {
	switch k {
	case KindProtein:
		return "protein"
	case KindLocation:
		return "location"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) file() (string, error) {
	switch k {
	case KindProtein:
		return ProteinFile, nil
	case KindLocation:
		return LocationFile, nil
	}
	return "", fmt.Errorf("%w: unknown artifact kind %d", models.ErrInvalidArgument, int(k))
}

// RestoreStatus reports what Restore did.
type RestoreStatus int

const (
	// RestoreCopied means the artifact was copied to the destination.
	RestoreCopied RestoreStatus = iota + 1
	// RestoreDeclined means the destination already existed and was left alone.
	RestoreDeclined
	// RestoreMissing means the cache holds no entry for the source.
	RestoreMissing
)

func (s RestoreStatus) String() string {
	switch s {
	case RestoreCopied:
		return "copied"
	case RestoreDeclined:
		return "declined"
	case RestoreMissing:
		return "missing"
	}
	return "unknown"
}

// ErrIntegrity matches every *IntegrityError.
var ErrIntegrity = errors.New("cache integrity check failed")

// IntegrityError reports an artifact whose hash differs from its source or manifest.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cache integrity check failed for %s: expected sha256 %s, got %s", e.Path, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrIntegrity) true.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// Entry locates the cache directory of one source file.
type Entry struct {
	Hash string
	Dir  string
}

// Path returns the path of a named artifact within the entry.
func (e Entry) Path(name string) string { return filepath.Join(e.Dir, name) }

// Cache is a content-addressed result store rooted at a directory.
type Cache struct {
	root string

	// beforeVerify runs after artifacts are copied and before they are
	// re-hashed. Tests use it to simulate corruption.
	beforeVerify func(e Entry)
}

// New creates a cache rooted at root.
func New(root string) (*Cache, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: empty cache root", models.ErrInvalidArgument)
	}
	return &Cache{root: root}, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// EntryFor hashes source and derives its entry directory.
func (c *Cache) EntryFor(source string) (Entry, error) {
	h, err := HashFile(source)
	if err != nil {
		return Entry{}, fmt.Errorf("hash %s: %w", source, err)
	}
	return c.entry(h), nil
}

func (c *Cache) entry(h string) Entry {
	return Entry{Hash: h, Dir: filepath.Join(c.root, h[0:2], h[2:4], h)}
}

func complete(e Entry) bool {
	for _, name := range []string{ManifestFile, ProteinFile, LocationFile} {
		st, err := os.Stat(e.Path(name))
		if err != nil || st.IsDir() {
			return false
		}
	}
	return true
}

// Exists reports whether a complete entry is stored for source.
func (c *Cache) Exists(source string) (bool, error) {
	e, err := c.EntryFor(source)
	if err != nil {
		return false, err
	}
	ok := complete(e)
	metrics.RecordCacheLookup(ok)
	return ok, nil
}

// Store copies proteins and locations into the entry for source. Every
// destination is re-hashed against its source before the manifest is
// committed; on mismatch the copies are removed and an *IntegrityError is
// returned. Storing into an already complete entry is a no-op.
func (c *Cache) Store(source, proteins, locations string) (err error) {
	defer func() {
		switch {
		case err == nil:
			metrics.ResultCacheStores.WithLabelValues("committed").Inc()
		case errors.Is(err, ErrIntegrity):
			metrics.ResultCacheStores.WithLabelValues("integrity_error").Inc()
		default:
			metrics.ResultCacheStores.WithLabelValues("error").Inc()
		}
	}()

	e, err := c.EntryFor(source)
	if err != nil {
		return err
	}
	if complete(e) {
		logging.Debug().Str("entry", e.Dir).Msg("Cache entry already present")
		return nil
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}

	artifacts := []struct{ src, name string }{
		{proteins, ProteinFile},
		{locations, LocationFile},
	}
	for _, a := range artifacts {
		if err := copyFile(a.src, e.Path(a.name)); err != nil {
			c.discard(e)
			return fmt.Errorf("store %s: %w", a.name, err)
		}
	}

	if c.beforeVerify != nil {
		c.beforeVerify(e)
	}

	manifest := make([]string, 0, 3)
	srcHash, err := HashFile(source)
	if err != nil {
		c.discard(e)
		return err
	}
	if srcHash != e.Hash {
		c.discard(e)
		return &IntegrityError{Path: source, Want: e.Hash, Got: srcHash}
	}
	manifest = append(manifest, filepath.Base(source)+"\t"+srcHash)

	for _, a := range artifacts {
		want, err := HashFile(a.src)
		if err != nil {
			c.discard(e)
			return err
		}
		got, err := HashFile(e.Path(a.name))
		if err != nil {
			c.discard(e)
			return err
		}
		if want != got {
			c.discard(e)
			return &IntegrityError{Path: e.Path(a.name), Want: want, Got: got}
		}
		manifest = append(manifest, a.name+"\t"+got)
	}

	if err := writeFileAtomic(e.Path(ManifestFile), []byte(strings.Join(manifest, "\n")+"\n")); err != nil {
		c.discard(e)
		return fmt.Errorf("commit cache manifest: %w", err)
	}

	logging.Debug().Str("entry", e.Dir).Msg("Stored prediction in cache")
	return nil
}

// discard removes uncommitted artifacts of an entry.
func (c *Cache) discard(e Entry) {
	for _, name := range []string{ProteinFile, LocationFile} {
		_ = os.Remove(e.Path(name))
	}
}

// Restore copies the artifact of the given kind for source to dest. An
// existing dest is never overwritten. A missing entry is not an error.
func (c *Cache) Restore(source, dest string, kind Kind) (RestoreStatus, error) {
	name, err := kind.file()
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(dest); err == nil {
		logging.Debug().Str("dest", dest).Msg("Restore target exists, not overwriting")
		return RestoreDeclined, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	e, err := c.EntryFor(source)
	if err != nil {
		return 0, err
	}
	if !complete(e) {
		return RestoreMissing, nil
	}

	manifest, err := readManifest(e.Path(ManifestFile))
	if err != nil {
		return 0, err
	}
	if err := copyFile(e.Path(name), dest); err != nil {
		return 0, fmt.Errorf("restore %s: %w", name, err)
	}
	if want, ok := manifest[name]; ok {
		got, err := HashFile(dest)
		if err != nil {
			return 0, err
		}
		if got != want {
			_ = os.Remove(dest)
			return 0, &IntegrityError{Path: e.Path(name), Want: want, Got: got}
		}
	}

	logging.Debug().Str("kind", kind.String()).Str("dest", dest).Msg("Restored from cache")
	return RestoreCopied, nil
}

// Verify re-hashes the stored artifacts of source against the manifest.
func (c *Cache) Verify(source string) error {
	e, err := c.EntryFor(source)
	if err != nil {
		return err
	}
	if !complete(e) {
		return fs.ErrNotExist
	}
	manifest, err := readManifest(e.Path(ManifestFile))
	if err != nil {
		return err
	}
	for _, name := range []string{ProteinFile, LocationFile} {
		want, ok := manifest[name]
		if !ok {
			return fmt.Errorf("%w: manifest lacks %s", ErrIntegrity, name)
		}
		got, err := HashFile(e.Path(name))
		if err != nil {
			return err
		}
		if got != want {
			return &IntegrityError{Path: e.Path(name), Want: want, Got: got}
		}
	}
	return nil
}

func readManifest(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name, hash, ok := strings.Cut(sc.Text(), "\t")
		if ok {
			out[name] = hash
		}
	}
	return out, sc.Err()
}
