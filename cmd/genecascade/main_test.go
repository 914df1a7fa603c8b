// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/genecascade/internal/config"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/taxonomy"
)

// env is an isolated working directory with a config file pointing the
// taxonomy store and result cache into it.
type env struct {
	dir    string
	config string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "GENECASCADE_") {
			t.Setenv(name, "")
			if err := os.Unsetenv(name); err != nil {
				t.Fatal(err)
			}
		}
	}
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	prev := logging.Logger()
	t.Cleanup(func() { logging.SetLogger(prev) })

	cfg := fmt.Sprintf("taxonomy:\n  db_path: %s\ncache:\n  dir: %s\n",
		filepath.Join(dir, "taxonomy"), filepath.Join(dir, "results"))
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return &env{dir: dir, config: path}
}

// run executes the root command quietly and returns its standard output.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.exec(t, append([]string{"--quiet"}, args...)...)
}

func (e *env) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *env) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "genecascade "+version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTaxonomyImportAndLineage(t *testing.T) {
	e := newEnv(t)
	e.write(t, "taxdump/nodes.dmp",
		"1\t|\t1\t|\tno rank\t|\n"+
			"2759\t|\t1\t|\tsuperkingdom\t|\n"+
			"4751\t|\t2759\t|\tkingdom\t|\n")
	e.write(t, "taxdump/merged.dmp", "99\t|\t4751\t|\n")

	out, err := e.run(t, "taxonomy", "import", "--taxdump", filepath.Join(e.dir, "taxdump"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 3 nodes and 1 merged ids") {
		t.Errorf("import output = %q", out)
	}

	out, err = e.run(t, "taxonomy", "lineage", "4751", "99")
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if want := "4751\t1-2759-4751\n99\t1-2759-4751\n"; out != want {
		t.Errorf("lineage output = %q, want %q", out, want)
	}

	if _, err := e.run(t, "taxonomy", "lineage", "12345"); err == nil {
		t.Error("expected an error for an unknown taxid")
	}
	if _, err := e.run(t, "taxonomy", "lineage", "abc"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("bad taxid err = %v", err)
	}

	out, err = e.run(t, "taxonomy", "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "nodes:    3") {
		t.Errorf("info output = %q", out)
	}
}

func TestTaxonomyLineage_NotImported(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "taxonomy", "lineage", "1"); err == nil {
		t.Error("expected an error before import")
	}
}

func TestCacheCommands(t *testing.T) {
	e := newEnv(t)
	fa := e.write(t, "genome.fa", ">c1\nACGT\n")

	out, err := e.run(t, "cache", "check", fa)
	if err != nil {
		t.Fatal(err)
	}
	if out != fa+"\tabsent\n" {
		t.Errorf("check output = %q", out)
	}

	dest := filepath.Join(e.dir, "restored.faa")
	out, err = e.run(t, "cache", "restore", fa, dest)
	if err != nil {
		t.Fatal(err)
	}
	if out != dest+": missing\n" {
		t.Errorf("restore output = %q", out)
	}

	if _, err := e.run(t, "cache", "restore", fa, dest, "--kind", "gff"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("bad kind err = %v", err)
	}
}

func TestRun_RequiresDatabase(t *testing.T) {
	e := newEnv(t)
	fa := e.write(t, "genome.fa", ">c1\nACGT\n")
	_, err := e.run(t, "run", "-i", fa, "-o", filepath.Join(e.dir, "out"))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestMeta_RequiresOutput(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "meta", "-i", e.dir); err == nil {
		t.Error("expected a missing --output error")
	}
}

func TestGlobalFlags(t *testing.T) {
	e := newEnv(t)
	if _, err := e.exec(t, "--quiet", "--debug", "version"); err == nil {
		t.Error("--quiet and --debug together should fail")
	}
	if _, err := e.exec(t, "--log-level", "loud", "version"); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("bad log level err = %v", err)
	}
	if _, err := e.exec(t, "--log-format", "json", "--log-level", "warn", "version"); err != nil {
		t.Errorf("valid overrides: %v", err)
	}
}

func TestPipelineClose_LogsLineageCacheStats(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prev := logging.Logger()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		logging.SetLogger(prev)
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTestLogger(&buf))

	store, err := taxonomy.OpenStore(taxonomy.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	resolver := taxonomy.NewResolver(store, 16)
	resolver.Resolve(context.Background(), 4751)
	resolver.Resolve(context.Background(), 4751)

	p := &pipeline{store: store, resolver: resolver}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"message":"Taxonomy lineage cache"`, `"hits":0`, `"misses":2`, `"hit_rate":0`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}
}
