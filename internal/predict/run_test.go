// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

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
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/coords"
	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/resultcache"
	"github.com/tomtom215/genecascade/internal/tools"
)

func proteins(ids ...string) []fasta.Record {
	recs := make([]fasta.Record, len(ids))
	for i, id := range ids {
		recs[i] = fasta.Record{ID: id, Seq: []byte("MKV" + strings.Repeat("A", i))}
	}
	return recs
}

func writeProteome(t *testing.T, dir string, recs []fasta.Record) (faa, bed string) {
	t.Helper()
	faa = filepath.Join(dir, tools.PrimaryProteins)
	bed = filepath.Join(dir, tools.PrimaryLocations)
	if err := fasta.WriteFile(faa, recs, fasta.LineWidth); err != nil {
		t.Fatal(err)
	}
	var locs []coords.BEDRecord
	for i, r := range recs {
		locs = append(locs, coords.BEDRecord{Chrom: coords.ContigOf(r.ID), Start: i * 100, End: i*100 + 90, Name: r.ID, Strand: "+"})
	}
	if err := coords.WriteBEDFile(bed, locs); err != nil {
		t.Fatal(err)
	}
	return faa, bed
}

type fakePrimary struct {
	t         *testing.T
	selfTrain []fasta.Record
	models    map[string][]fasta.Record

	mu             sync.Mutex
	selfTrainCalls int
	predicted      []string
}

func (f *fakePrimary) result(dir string, recs []fasta.Record) tools.PrimaryResult {
	res := tools.PrimaryResult{
		Dir:       dir,
		GTF:       filepath.Join(dir, tools.GeneMarkGTF),
		Proteins:  filepath.Join(dir, tools.PrimaryProteins),
		Locations: filepath.Join(dir, tools.PrimaryLocations),
		Model:     filepath.Join(dir, tools.GeneMarkModel),
	}
	if len(recs) == 0 {
		return res
	}
	writeProteome(f.t, dir, recs)
	for path, content := range map[string]string{res.GTF: "gtf\n", res.Model: "model\n"} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			f.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			f.t.Fatal(err)
		}
	}
	return res
}

func (f *fakePrimary) SelfTrain(_ context.Context, _, dir string) (tools.PrimaryResult, error) {
	f.mu.Lock()
	f.selfTrainCalls++
	f.mu.Unlock()
	res := f.result(dir, f.selfTrain)
	if len(f.selfTrain) == 0 {
		return res, errors.New("training failed")
	}
	return res, nil
}

func (f *fakePrimary) Predict(_ context.Context, _, model, dir string) (tools.PrimaryResult, error) {
	id := strings.TrimSuffix(filepath.Base(model), ".mod")
	f.mu.Lock()
	f.predicted = append(f.predicted, id)
	f.mu.Unlock()
	return f.result(dir, f.models[id]), nil
}

type fakeSecondary struct {
	t     *testing.T
	recs  []fasta.Record
	calls int
}

func (f *fakeSecondary) Predict(_ context.Context, _, dir string) (tools.SecondaryResult, error) {
	f.calls++
	res := tools.SecondaryResult{Dir: dir}
	if len(f.recs) == 0 {
		return res, errors.New("no genes")
	}
	res.Proteins, res.Locations = writeProteome(f.t, dir, f.recs)
	return res, nil
}

type fakeCatalog struct {
	refined   []catalog.Model
	refineErr error
	lineages  map[string]models.Lineage

	infoCalls   int
	refineCalls int
	observed    models.Lineage
}

func (f *fakeCatalog) Info(context.Context) (catalog.Info, error) {
	f.infoCalls++
	return catalog.Info(f.lineages), nil
}

func (f *fakeCatalog) Refine(_ context.Context, observed models.Lineage, _ string) ([]catalog.Model, error) {
	f.refineCalls++
	f.observed = observed.Clone()
	return f.refined, f.refineErr
}

func (f *fakeCatalog) Lineage(id string) (models.Lineage, bool) {
	l, ok := f.lineages[id]
	return l, ok
}

// ruleClassifier returns the lineage of the first rule whose key is a
// substring of the proteome path.
type ruleClassifier struct {
	rules []struct {
		match   string
		lineage models.Lineage
	}
	calls []string
}

func (c *ruleClassifier) add(match string, l models.Lineage) *ruleClassifier {
	c.rules = append(c.rules, struct {
		match   string
		lineage models.Lineage
	}{match, l})
	return c
}

func (c *ruleClassifier) Classify(_ context.Context, proteome, _ string) (*classify.Result, error) {
	c.calls = append(c.calls, proteome)
	for _, r := range c.rules {
		if strings.Contains(proteome, r.match) {
			return &classify.Result{Lineage: r.lineage}, nil
		}
	}
	return &classify.Result{Lineage: models.Lineage{}}, nil
}

func newTestConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "genome.fa")
	if err := os.WriteFile(src, []byte(">ctg1\nACGTACGT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Config{
		Sample: models.Sample{
			Name:     "genome",
			Source:   src,
			Sequence: src,
			WorkDir:  filepath.Join(root, "work"),
		},
		StageOneModels:  filepath.Join(root, "premodels"),
		CollectedModels: filepath.Join(root, "collected"),
		Output: Output{
			Proteins:  filepath.Join(root, "out", "genome.faa"),
			Locations: filepath.Join(root, "out", "genome.bed"),
		},
	}
}

func addModels(t *testing.T, dir string, ids ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := os.WriteFile(filepath.Join(dir, id+".mod"), []byte("model"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func traceStages(o *Outcome) []string {
	var out []string
	for _, ev := range o.Trace {
		s := ev.Stage.String()
		if !ev.Success {
			s += "!"
		}
		out = append(out, s)
	}
	return out
}

func readIDs(t *testing.T, path string) []string {
	t.Helper()
	recs, err := fasta.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

var (
	lngFungus   = models.Lineage{1, 2759, 4751}
	lngPlant    = models.Lineage{1, 2759, 33090}
	lngBacteria = models.Lineage{1, 2, 1224}
)

func TestRun_SelfTrainingSuccess(t *testing.T) {
	cfg := newTestConfig(t)
	primary := &fakePrimary{t: t, selfTrain: proteins("ctg1_1", "ctg1_2")}
	secondary := &fakeSecondary{t: t, recs: proteins("ctg9_1")}
	cat := &fakeCatalog{}
	clf := (&ruleClassifier{}).add("", lngFungus)

	run, err := NewRun(cfg, Deps{Primary: primary, Secondary: secondary, Catalog: cat})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if out.Stage != StageDone || out.Route != RouteSelfTrained {
		t.Fatalf("stage=%s route=%s", out.Stage, out.Route)
	}
	if diff := cmp.Diff([]string{"init", "self_training", "classify"}, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if cat.infoCalls+cat.refineCalls != 0 {
		t.Errorf("catalog used %d times after successful self-training", cat.infoCalls+cat.refineCalls)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary predictor called %d times", secondary.calls)
	}
	if !out.Lineage.Equal(lngFungus) {
		t.Errorf("lineage = %v, want %v", out.Lineage, lngFungus)
	}
	if out.Proteins != cfg.Output.Proteins || out.Locations != cfg.Output.Locations {
		t.Errorf("outputs = %s, %s", out.Proteins, out.Locations)
	}
	if diff := cmp.Diff([]string{"ctg1_1", "ctg1_2"}, readIDs(t, out.Proteins)); diff != "" {
		t.Errorf("published proteins mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(cfg.CollectedModels, "genome.mod")); err != nil {
		t.Errorf("trained model not collected: %v", err)
	}
}

func TestRun_RefinedModel(t *testing.T) {
	cfg := newTestConfig(t)
	addModels(t, cfg.StageOneModels, "a", "b")
	dl := filepath.Join(t.TempDir(), "dl")
	addModels(t, dl, "c")

	primary := &fakePrimary{t: t, models: map[string][]fasta.Record{
		"a": proteins("ctg1_1"),
		"b": proteins("ctg1_1", "ctg1_2", "ctg2_1"),
		"c": proteins("ctg1_1", "ctg2_1"),
	}}
	secondary := &fakeSecondary{t: t}
	cat := &fakeCatalog{
		refined:  []catalog.Model{{ID: "c", Path: filepath.Join(dl, "c.mod")}},
		lineages: map[string]models.Lineage{"b": lngPlant, "c": lngFungus},
	}
	clf := (&ruleClassifier{}).
		add(filepath.Join(dirStageOne, "b"), lngPlant).
		add("", lngFungus)

	run, err := NewRun(cfg, Deps{Primary: primary, Secondary: secondary, Catalog: cat})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if out.Route != RouteRefined || out.ModelID != "c" {
		t.Fatalf("route=%s model=%s, want refined_model c", out.Route, out.ModelID)
	}
	want := []string{"init", "self_training!", "pre_model_1", "taxonomy_estimate", "pre_model_2", "refresh", "classify"}
	if diff := cmp.Diff(want, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, primary.predicted); diff != "" {
		t.Errorf("predicted models mismatch (-want +got):\n%s", diff)
	}
	if !cat.observed.Equal(lngPlant) {
		t.Errorf("refine saw lineage %v, want the stage-one lineage %v", cat.observed, lngPlant)
	}
	if cat.infoCalls != 1 {
		t.Errorf("catalog index requested %d times, want 1", cat.infoCalls)
	}
	if out.NeedsSecondary || secondary.calls != 0 {
		t.Errorf("secondary predictor engaged for a eukaryotic lineage")
	}
	if !out.Lineage.Equal(lngFungus) {
		t.Errorf("lineage = %v, want %v", out.Lineage, lngFungus)
	}
}

func TestRun_RefineFailureKeepsStageOne(t *testing.T) {
	cfg := newTestConfig(t)
	addModels(t, cfg.StageOneModels, "a", "b")

	primary := &fakePrimary{t: t, models: map[string][]fasta.Record{
		"a": proteins("ctg1_1", "ctg1_2"),
		"b": proteins("ctg1_1", "ctg1_2"),
	}}
	cat := &fakeCatalog{refineErr: catalog.ErrZeroModelsAvailable}
	clf := (&ruleClassifier{}).add("", lngPlant)

	run, err := NewRun(cfg, Deps{Primary: primary, Catalog: cat})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Equal residue counts go to the lowest model id.
	if out.Route != RouteStageOne || out.ModelID != "a" {
		t.Fatalf("route=%s model=%s, want stage_one_model a", out.Route, out.ModelID)
	}
	want := []string{"init", "self_training!", "pre_model_1", "taxonomy_estimate!", "classify"}
	if diff := cmp.Diff(want, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_RefinedModelsPredictNothing(t *testing.T) {
	cfg := newTestConfig(t)
	addModels(t, cfg.StageOneModels, "a")
	dl := filepath.Join(t.TempDir(), "dl")
	addModels(t, dl, "c")

	primary := &fakePrimary{t: t, models: map[string][]fasta.Record{"a": proteins("ctg1_1")}}
	cat := &fakeCatalog{refined: []catalog.Model{{ID: "c", Path: filepath.Join(dl, "c.mod")}}}
	clf := (&ruleClassifier{}).add("", lngPlant)

	run, err := NewRun(cfg, Deps{Primary: primary, Catalog: cat})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Route != RouteStageOne || out.ModelID != "a" {
		t.Fatalf("route=%s model=%s, want stage_one_model a", out.Route, out.ModelID)
	}
	want := []string{"init", "self_training!", "pre_model_1", "taxonomy_estimate", "pre_model_2!", "classify"}
	if diff := cmp.Diff(want, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_HybridForNonEukaryoticLineage(t *testing.T) {
	cfg := newTestConfig(t)
	addModels(t, cfg.StageOneModels, "a")

	primary := &fakePrimary{t: t, models: map[string][]fasta.Record{
		"a": proteins("ctgA_1", "ctgA_2", "ctgB_1"),
	}}
	secondary := &fakeSecondary{t: t, recs: proteins("ctgB_1", "ctgC_1", "ctgC_2")}
	clf := (&ruleClassifier{}).add("", lngBacteria)

	before := testutil.ToFloat64(metrics.HybridMergedSequences)
	run, err := NewRun(cfg, Deps{Primary: primary, Secondary: secondary})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if out.Route != RouteHybrid || !out.NeedsSecondary {
		t.Fatalf("route=%s needsSecondary=%v", out.Route, out.NeedsSecondary)
	}
	want := []string{"ctgA_1", "ctgA_2", "ctgB_1", "ctgC_1", "ctgC_2"}
	if diff := cmp.Diff(want, readIDs(t, out.Proteins)); diff != "" {
		t.Errorf("merged proteins mismatch (-want +got):\n%s", diff)
	}
	bed, err := coords.ReadBEDFile(out.Locations)
	if err != nil {
		t.Fatal(err)
	}
	var chroms []string
	for _, b := range bed {
		chroms = append(chroms, b.Chrom)
	}
	if diff := cmp.Diff([]string{"ctgA", "ctgA", "ctgB", "ctgC", "ctgC"}, chroms); diff != "" {
		t.Errorf("merged locations mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(metrics.HybridMergedSequences) - before; got != 2 {
		t.Errorf("merged sequence counter grew by %v, want 2", got)
	}
}

func TestRun_SecondaryOnly(t *testing.T) {
	cfg := newTestConfig(t)
	primary := &fakePrimary{t: t}
	secondary := &fakeSecondary{t: t, recs: proteins("ctg1_1")}
	clf := (&ruleClassifier{}).add("", lngBacteria)

	run, err := NewRun(cfg, Deps{Primary: primary, Secondary: secondary})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Route != RouteSecondary {
		t.Fatalf("route = %s, want secondary", out.Route)
	}
	want := []string{"init", "self_training!", "pre_model_1!", "secondary", "hybrid_merge", "classify"}
	if diff := cmp.Diff(want, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_NoPrediction(t *testing.T) {
	for name, secondary := range map[string]SecondaryPredictor{
		"without secondary":  nil,
		"secondary finds no": &fakeSecondary{t: t},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := newTestConfig(t)
			deps := Deps{Primary: &fakePrimary{t: t}}
			if secondary != nil {
				deps.Secondary = secondary
			}
			run, err := NewRun(cfg, deps)
			if err != nil {
				t.Fatal(err)
			}
			out, err := run.Execute(context.Background(), &ruleClassifier{})
			if !errors.Is(err, ErrNoPrediction) {
				t.Fatalf("err = %v, want ErrNoPrediction", err)
			}
			if out.Stage != StageFailed || out.Error == "" {
				t.Errorf("stage=%s error=%q", out.Stage, out.Error)
			}
			if !out.Lineage.Empty() {
				t.Errorf("failed run has lineage %v", out.Lineage)
			}
		})
	}
}

func TestRun_ResultCacheHit(t *testing.T) {
	cache, err := resultcache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := newTestConfig(t)
	first := &fakePrimary{t: t, selfTrain: proteins("ctg1_1", "ctg1_2")}
	clf := (&ruleClassifier{}).add("", lngFungus)

	run, err := NewRun(cfg, Deps{Primary: first, Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := run.Execute(context.Background(), clf); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if ok, _ := cache.Exists(cfg.Sample.Source); !ok {
		t.Fatal("prediction not stored in the result cache")
	}

	again := cfg
	again.Sample.WorkDir = filepath.Join(t.TempDir(), "work")
	again.Output = Output{
		Proteins:  filepath.Join(t.TempDir(), "genome.faa"),
		Locations: filepath.Join(t.TempDir(), "genome.bed"),
	}
	second := &fakePrimary{t: t}
	run, err = NewRun(again, Deps{Primary: second, Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	out, err := run.Execute(context.Background(), clf)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if out.Route != RouteCache {
		t.Fatalf("route = %s, want cache", out.Route)
	}
	if second.selfTrainCalls != 0 {
		t.Error("predictor ran despite a cached result")
	}
	if diff := cmp.Diff([]string{"init", "classify"}, traceStages(out)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ctg1_1", "ctg1_2"}, readIDs(t, again.Output.Proteins)); diff != "" {
		t.Errorf("restored proteins mismatch (-want +got):\n%s", diff)
	}
	if !out.Lineage.Equal(lngFungus) {
		t.Errorf("lineage = %v, want %v", out.Lineage, lngFungus)
	}
}

func TestRun_AwaitingLineage(t *testing.T) {
	cfg := newTestConfig(t)
	run, err := NewRun(cfg, Deps{Primary: &fakePrimary{t: t, selfTrain: proteins("ctg1_1")}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := run.ProvideLineage(lngFungus); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("ProvideLineage before pending: err = %v", err)
	}
	for range 2 {
		if err := run.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if got := run.Stage(); got != StageClassify {
		t.Fatalf("stage = %s, want classify", got)
	}
	if err := run.Advance(ctx); !errors.Is(err, ErrAwaitingLineage) {
		t.Fatalf("Advance without lineage: err = %v", err)
	}
	p, ok := run.Pending()
	if !ok || p.Stage != StageClassify || filepath.Base(p.Proteome) != tools.PrimaryProteins {
		t.Fatalf("Pending() = %+v, %v", p, ok)
	}
	if err := run.ProvideLineage(lngFungus); err != nil {
		t.Fatal(err)
	}
	if err := run.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	if !run.Terminal() {
		t.Fatalf("stage = %s, want done", run.Stage())
	}
	if err := run.Advance(ctx); err != nil {
		t.Errorf("Advance on terminal run: %v", err)
	}
	if out := run.Outcome(); !out.Lineage.Equal(lngFungus) {
		t.Errorf("lineage = %v", out.Lineage)
	}
}

// gatedPrimary blocks self-training until release is closed.
type gatedPrimary struct {
	*fakePrimary
	started chan struct{}
	release chan struct{}
}

func (g *gatedPrimary) SelfTrain(ctx context.Context, seq, dir string) (tools.PrimaryResult, error) {
	close(g.started)
	<-g.release
	return g.fakePrimary.SelfTrain(ctx, seq, dir)
}

func TestRun_StageDoesNotWaitForRunningTools(t *testing.T) {
	cfg := newTestConfig(t)
	primary := &gatedPrimary{
		fakePrimary: &fakePrimary{t: t, selfTrain: proteins("ctg1_1")},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	run, err := NewRun(cfg, Deps{Primary: primary})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := run.Advance(ctx); err != nil {
		t.Fatal(err)
	}

	advanced := make(chan error, 1)
	go func() { advanced <- run.Advance(ctx) }()
	<-primary.started

	read := make(chan Stage, 1)
	go func() { read <- run.Stage() }()
	select {
	case got := <-read:
		if got != StageSelfTraining {
			t.Errorf("stage during self-training = %s", got)
		}
		if run.Terminal() {
			t.Error("run reported terminal while a stage is running")
		}
	case <-time.After(time.Second):
		t.Fatal("Stage blocked while self-training ran")
	}

	close(primary.release)
	if err := <-advanced; err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := run.Stage(); got != StageClassify {
		t.Errorf("stage after self-training = %s, want classify", got)
	}
}

func TestRun_CancelledContextIsResumable(t *testing.T) {
	cfg := newTestConfig(t)
	run, err := NewRun(cfg, Deps{Primary: &fakePrimary{t: t}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run.Advance(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := run.Advance(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := run.Stage(); got != StageSelfTraining {
		t.Errorf("stage = %s after cancellation, want self_training", got)
	}
}

func TestNewRun_Validation(t *testing.T) {
	cfg := newTestConfig(t)
	if _, err := NewRun(cfg, Deps{}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("missing primary: err = %v", err)
	}
	bad := cfg
	bad.Sample.WorkDir = ""
	if _, err := NewRun(bad, Deps{Primary: &fakePrimary{t: t}}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("missing workdir: err = %v", err)
	}
}
