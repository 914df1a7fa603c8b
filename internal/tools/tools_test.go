// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/genecascade/internal/coords"
	"github.com/tomtom215/genecascade/internal/fasta"
)

// scriptedRunner records invocations and lets each test simulate tool output.
type scriptedRunner struct {
	mu    sync.Mutex
	calls []Command
	fn    func(Command) error
}

func (r *scriptedRunner) Run(_ context.Context, cmd Command) error {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	if r.fn == nil {
		return nil
	}
	return r.fn(cmd)
}

func (r *scriptedRunner) tools() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Tool
	}
	return out
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExecRunner(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "tool.log")
	r := NewExecRunner(0)

	err := r.Run(context.Background(), Command{
		Tool:    "sh",
		Path:    "sh",
		Args:    []string{"-c", "echo hello; exit 3"},
		Dir:     dir,
		LogFile: logFile,
	})

	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if te.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", te.ExitCode)
	}
	if !errors.Is(err, ErrExternalTool) {
		t.Error("expected errors.Is(err, ErrExternalTool)")
	}

	data, _ := os.ReadFile(logFile)
	if !strings.Contains(string(data), "hello") || !strings.HasPrefix(string(data), "# ") {
		t.Errorf("unexpected log content %q", data)
	}

	if err := r.Run(context.Background(), Command{Tool: "sh", Path: "sh", Args: []string{"-c", "exit 0"}}); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestExecRunner_MissingBinaryAndTimeout(t *testing.T) {
	r := NewExecRunner(0)

	err := r.Run(context.Background(), Command{Tool: "nope", Path: "genecascade-no-such-binary"})
	if !errors.Is(err, ErrExternalTool) {
		t.Errorf("missing binary should be a tool failure, got %v", err)
	}

	r = NewExecRunner(50 * time.Millisecond)
	err = r.Run(context.Background(), Command{Tool: "sleep", Path: "sleep", Args: []string{"5"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

const gtf = "ctgA\tGeneMark.hmm3\tCDS\t1\t30\t.\t+\t0\tgene_id \"1_g\"; transcript_id \"1_t\";\n" +
	"ctgA\tGeneMark.hmm3\tCDS\t40\t90\t.\t-\t0\tgene_id \"2_g\"; transcript_id \"2_t\";\n"

func TestGeneMark_SelfTrain(t *testing.T) {
	dir := t.TempDir()
	seq := filepath.Join(dir, "bin.fa")
	mustWrite(t, seq, ">ctgA\nACGT\n")

	runner := &scriptedRunner{fn: func(c Command) error {
		switch c.Tool {
		case "genemark":
			mustWrite(t, filepath.Join(c.Dir, GeneMarkGTF), gtf)
			mustWrite(t, filepath.Join(c.Dir, GeneMarkModel), "model")
			return &ToolError{Tool: "genemark", ExitCode: 1}
		case "gtf2faa":
			mustWrite(t, filepath.Join(c.Dir, GeneMarkRawFAA), ">2_t\nMKV\n>1_t\nMAA\n")
		}
		return nil
	}}

	g := NewGeneMark(GeneMarkConfig{Threads: 4, MinContig: 5000, Fungus: true}, runner)
	res, err := g.SelfTrain(context.Background(), seq, filepath.Join(dir, "work"))

	// a nominal failure still yields extracted proteins
	if !errors.Is(err, ErrExternalTool) {
		t.Errorf("expected the predictor failure to be reported, got %v", err)
	}
	if diff := cmp.Diff([]string{"genemark", "gtf2faa"}, runner.tools()); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}

	args := strings.Join(runner.calls[0].Args, " ")
	for _, want := range []string{"--ES", "--fungus", "--cores 4", "--min_contig 5000", "--sequence " + seq} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in %q", want, args)
		}
	}

	recs, err := fasta.ReadFile(res.Proteins)
	if err != nil {
		t.Fatalf("read proteins: %v", err)
	}
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"ctgA_2", "ctgA_1"}, ids); diff != "" {
		t.Errorf("protein ids mismatch (-want +got):\n%s", diff)
	}

	bed, err := coords.ReadBEDFile(res.Locations)
	if err != nil || len(bed) != 2 || bed[0].Name != "ctgA_1" {
		t.Errorf("unexpected BED %+v (%v)", bed, err)
	}
	if res.Model != filepath.Join(res.Dir, GeneMarkModel) {
		t.Errorf("unexpected model path %s", res.Model)
	}
}

func TestGeneMark_PredictWithoutGTF(t *testing.T) {
	dir := t.TempDir()
	runner := &scriptedRunner{}
	g := NewGeneMark(GeneMarkConfig{}, runner)

	_, err := g.Predict(context.Background(), filepath.Join(dir, "bin.fa"), filepath.Join(dir, "m.mod"), dir)
	if err == nil {
		t.Fatal("expected an error when no GTF is produced")
	}
	if diff := cmp.Diff([]string{"genemark"}, runner.tools()); diff != "" {
		t.Errorf("protein extraction must not run without a GTF (-want +got):\n%s", diff)
	}
	if !strings.Contains(strings.Join(runner.calls[0].Args, " "), "--predict_with") {
		t.Error("expected --predict_with in arguments")
	}
}

func TestProdigal_MemoizesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	runner := &scriptedRunner{fn: func(c Command) error {
		mustWrite(t, filepath.Join(c.Dir, SecondaryProteins), ">k_1\nMK\n")
		mustWrite(t, filepath.Join(c.Dir, SecondaryGFF),
			"k\tProdigal\tCDS\t1\t9\t1\t+\t0\tID=1_1;\n")
		return nil
	}}
	p := NewProdigal(ProdigalConfig{}, runner)

	for i := 0; i < 2; i++ {
		res, err := p.Predict(context.Background(), filepath.Join(dir, "bin.fa"), filepath.Join(dir, "prodigal"))
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if _, err := os.Stat(res.Locations); err != nil {
			t.Errorf("expected BED output: %v", err)
		}
	}
	if len(runner.tools()) != 1 {
		t.Errorf("expected a single prodigal invocation, got %d", len(runner.tools()))
	}
	if got := strings.Join(runner.calls[0].Args, " "); !strings.Contains(got, "-p meta") {
		t.Errorf("expected meta mode, got %q", got)
	}
}

func TestDiamond_Args(t *testing.T) {
	t.Parallel()

	d := NewDiamond(DiamondConfig{Database: "/db/nr.dmnd", Threads: 8}, &scriptedRunner{})
	got := strings.Join(d.Args("q.faa", "out.tsv"), " ")
	want := "blastp --db /db/nr.dmnd -q q.faa -p 8 --evalue 1e-20 --max-target-seqs 3 --outfmt 6 qseqid sseqid pident evalue bitscore staxids -o out.tsv"
	if got != want {
		t.Errorf("args mismatch\n got %s\nwant %s", got, want)
	}

	empty := NewDiamond(DiamondConfig{}, &scriptedRunner{})
	if err := empty.Align(context.Background(), "q", "o"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
}
