// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package resultcache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/genecascade/internal/models"
)

type fixture struct {
	cache     *Cache
	source    string
	proteins  string
	locations string
	dir       string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f := fixture{
		cache:     c,
		source:    filepath.Join(dir, "bin.fa"),
		proteins:  filepath.Join(dir, "p.faa"),
		locations: filepath.Join(dir, "g.bed"),
		dir:       dir,
	}
	write(t, f.source, ">ctg\nACGTACGT\n")
	write(t, f.proteins, ">ctg_1\nMKV\n")
	write(t, f.locations, "ctg\t0\t9\tctg_1\t0\t+\n")
	return f
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestLayout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	e, err := f.cache.EntryFor(f.source)
	if err != nil {
		t.Fatal(err)
	}
	h := e.Hash
	if len(h) != 64 || strings.ToLower(h) != h {
		t.Fatalf("expected lowercase hex sha256, got %q", h)
	}
	want := filepath.Join(f.cache.Root(), h[0:2], h[2:4], h)
	if e.Dir != want {
		t.Errorf("entry dir = %s, want %s", e.Dir, want)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if ok, _ := f.cache.Exists(f.source); ok {
		t.Fatal("expected miss before store")
	}
	if err := f.cache.Store(f.source, f.proteins, f.locations); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if ok, err := f.cache.Exists(f.source); !ok || err != nil {
		t.Fatalf("expected hit after store, got %v %v", ok, err)
	}

	for kind, src := range map[Kind]string{KindProtein: f.proteins, KindLocation: f.locations} {
		dest := filepath.Join(f.dir, "restored", kind.String())
		status, err := f.cache.Restore(f.source, dest, kind)
		if err != nil || status != RestoreCopied {
			t.Fatalf("Restore(%s) = %v, %v", kind, status, err)
		}
		if read(t, dest) != read(t, src) {
			t.Errorf("restored %s differs from original", kind)
		}
	}

	manifest := read(t, filepath.Join(mustEntry(t, f).Dir, ManifestFile))
	for _, name := range []string{"bin.fa\t", ProteinFile + "\t", LocationFile + "\t"} {
		if !strings.Contains(manifest, name) {
			t.Errorf("manifest lacks %q: %s", name, manifest)
		}
	}
	if err := f.cache.Verify(f.source); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func mustEntry(t *testing.T, f fixture) Entry {
	t.Helper()
	e, err := f.cache.EntryFor(f.source)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRestore_NeverClobbers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.cache.Store(f.source, f.proteins, f.locations); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(f.dir, "existing.faa")
	write(t, dest, "user data")

	status, err := f.cache.Restore(f.source, dest, KindProtein)
	if err != nil || status != RestoreDeclined {
		t.Fatalf("expected declined restore, got %v %v", status, err)
	}
	if read(t, dest) != "user data" {
		t.Error("existing destination was overwritten")
	}
}

func TestRestore_Missing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, err := f.cache.Restore(f.source, filepath.Join(f.dir, "x.faa"), KindProtein)
	if err != nil || status != RestoreMissing {
		t.Errorf("expected missing without error, got %v %v", status, err)
	}
}

func TestRestore_InvalidKind(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.cache.Restore(f.source, filepath.Join(f.dir, "x"), Kind(42))
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ParseKind("gff"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument from ParseKind, got %v", err)
	}
}

func TestStore_CorruptionDetected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.cache.beforeVerify = func(e Entry) {
		write(t, e.Path(ProteinFile), ">tampered\nXXXX\n")
	}

	err := f.cache.Store(f.source, f.proteins, f.locations)
	var ie *IntegrityError
	if !errors.As(err, &ie) || !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}

	e := mustEntry(t, f)
	if _, err := os.Stat(e.Path(ManifestFile)); !os.IsNotExist(err) {
		t.Error("manifest must not exist after a failed store")
	}
	if ok, _ := f.cache.Exists(f.source); ok {
		t.Error("entry must not exist after a failed store")
	}
}

func TestExists_PartialEntryIsMiss(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.cache.Store(f.source, f.proteins, f.locations); err != nil {
		t.Fatal(err)
	}
	e := mustEntry(t, f)
	if err := os.Remove(e.Path(LocationFile)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.cache.Exists(f.source); ok {
		t.Error("entry with a missing artifact must be a miss")
	}
}

func TestVerify_DetectsLaterTampering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.cache.Store(f.source, f.proteins, f.locations); err != nil {
		t.Fatal(err)
	}
	write(t, mustEntry(t, f).Path(LocationFile), "garbage\n")

	if err := f.cache.Verify(f.source); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}
}

func TestNew_EmptyRoot(t *testing.T) {
	t.Parallel()
	if _, err := New(" "); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
