// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/genecascade/internal/models"
)

func TestHybridMerge(t *testing.T) {
	dir := t.TempDir()
	pf, pb := writeProteome(t, filepath.Join(dir, "p"), proteins("A_1", "A_2", "B_1"))
	sf, sb := writeProteome(t, filepath.Join(dir, "s"), proteins("B_1", "B_2", "C_1"))
	primary := &Prediction{Route: RouteStageOne, ModelID: "m", Proteins: pf, Locations: pb}
	secondary := &Prediction{Route: RouteSecondary, Proteins: sf, Locations: sb}

	merged, added, err := HybridMerge(primary, secondary, filepath.Join(dir, "h"))
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if merged.Route != RouteHybrid || merged.ModelID != "m" {
		t.Errorf("merged = %+v", merged)
	}
	if diff := cmp.Diff([]string{"A_1", "A_2", "B_1", "C_1"}, readIDs(t, merged.Proteins)); diff != "" {
		t.Errorf("merged proteins mismatch (-want +got):\n%s", diff)
	}
}

func TestHybridMerge_NothingNew(t *testing.T) {
	dir := t.TempDir()
	pf, pb := writeProteome(t, filepath.Join(dir, "p"), proteins("A_1", "B_1"))
	sf, sb := writeProteome(t, filepath.Join(dir, "s"), proteins("B_7"))
	primary := &Prediction{Route: RouteStageOne, Proteins: pf, Locations: pb}

	merged, added, err := HybridMerge(primary, &Prediction{Proteins: sf, Locations: sb}, filepath.Join(dir, "h"))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 || merged != primary {
		t.Errorf("HybridMerge() = %+v, %d; want the primary unchanged", merged, added)
	}
	if _, err := os.Stat(filepath.Join(dir, "h")); !os.IsNotExist(err) {
		t.Errorf("merge directory created without a merge: %v", err)
	}
}

func TestListModels(t *testing.T) {
	dir := t.TempDir()
	addModels(t, dir, "zeta", "alpha")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	refs, err := listModels(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []modelRef{
		{ID: "alpha", Path: filepath.Join(dir, "alpha.mod")},
		{ID: "zeta", Path: filepath.Join(dir, "zeta.mod")},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("listModels() mismatch (-want +got):\n%s", diff)
	}

	refs, err = listModels(filepath.Join(dir, "missing"))
	if err != nil || refs != nil {
		t.Errorf("listModels(missing) = %v, %v", refs, err)
	}
}

func TestPrepareSample(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.fa")
	if err := os.WriteFile(plain, []byte(">c1 some description\nACGT\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := models.Sample{Name: "plain", Source: plain, WorkDir: filepath.Join(dir, "w1")}
	got, res, err := PrepareSample(s, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sequence != plain || res != nil {
		t.Errorf("uncleaned sample = %+v, %+v", got, res)
	}

	got, res, err = PrepareSample(s, true)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || got.Sequence != filepath.Join(s.WorkDir, "plain.fa") {
		t.Errorf("cleaned sample = %+v, %+v", got, res)
	}

	gz := filepath.Join(dir, "packed.fa.gz")
	f, err := os.Create(gz)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(">c1\nACGT\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	packed := models.Sample{Name: "packed", Source: gz, WorkDir: filepath.Join(dir, "w2")}
	got, _, err = PrepareSample(packed, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sequence != filepath.Join(packed.WorkDir, "packed.fa") {
		t.Errorf("gzip input not cleaned: sequence = %s", got.Sequence)
	}
}
