// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package coords

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const genemarkGTF = `contigB	GeneMark.hmm3	start_codon	500	502	.	-	0	gene_id "2_g"; transcript_id "2_t";
contigB	GeneMark.hmm3	CDS	300	502	.	-	0	gene_id "2_g"; transcript_id "2_t";
contigB	GeneMark.hmm3	intron	250	299	.	-	0	gene_id "2_g"; transcript_id "2_t";
contigB	GeneMark.hmm3	CDS	100	249	.	-	0	gene_id "2_g"; transcript_id "2_t";
contigA	GeneMark.hmm3	CDS	10	90	.	+	0	gene_id "1_g"; transcript_id "1_t";
contigB	GeneMark.hmm3	CDS	10	60	.	+	0	gene_id "3_g"; transcript_id "3_t";
`

const prodigalGFF = `##gff-version  3
# Sequence Data: seqnum=1;seqlen=5000;seqhdr="k141_7"
k141_7	Prodigal_v2.6.3	CDS	2	400	55.6	+	0	ID=1_1;partial=10;start_type=Edge;
k141_7	Prodigal_v2.6.3	CDS	500	1200	80.1	-	0	ID=1_2;partial=00;start_type=ATG;
k141_9	Prodigal_v2.6.3	CDS	3	90	12.0	+	0	ID=2_1;partial=10;
`

func TestContigOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"k141_7_12":  "k141_7",
		"contigA_1":  "contigA",
		"nounderscr": "nounderscr",
		"_1":         "_1",
	}
	for in, want := range tests {
		if got := ContigOf(in); got != want {
			t.Errorf("ContigOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadGTF(t *testing.T) {
	t.Parallel()

	genes, err := ReadGTF(strings.NewReader(genemarkGTF))
	if err != nil {
		t.Fatalf("ReadGTF: %v", err)
	}
	want := []Gene{
		{ID: "2_t", Contig: "contigB", Start: 100, End: 502, Strand: "-"},
		{ID: "1_t", Contig: "contigA", Start: 10, End: 90, Strand: "+"},
		{ID: "3_t", Contig: "contigB", Start: 10, End: 60, Strand: "+"},
	}
	if diff := cmp.Diff(want, genes); diff != "" {
		t.Errorf("genes mismatch (-want +got):\n%s", diff)
	}
}

func TestGTFAliases(t *testing.T) {
	t.Parallel()

	byID, genes, err := GTFAliases(strings.NewReader(genemarkGTF))
	if err != nil {
		t.Fatalf("GTFAliases: %v", err)
	}
	if len(genes) != 3 {
		t.Fatalf("expected 3 genes, got %d", len(genes))
	}
	if byID["2_g"] != byID["2_t"] || byID["2_g"].Contig != "contigB" {
		t.Errorf("gene_id alias not resolved: %+v", byID["2_g"])
	}
}

func TestNumberByContig(t *testing.T) {
	t.Parallel()

	genes, _ := ReadGTF(strings.NewReader(genemarkGTF))
	got := NumberByContig(genes)
	want := map[string]string{
		"1_t": "contigA_1",
		"3_t": "contigB_1",
		"2_t": "contigB_2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestReadGFF(t *testing.T) {
	t.Parallel()

	genes, err := ReadGFF(strings.NewReader(prodigalGFF + "##FASTA\n>k141_7\nACGT\n"))
	if err != nil {
		t.Fatalf("ReadGFF: %v", err)
	}
	var ids []string
	for _, g := range genes {
		ids = append(ids, g.ID)
	}
	if diff := cmp.Diff([]string{"k141_7_1", "k141_7_2", "k141_9_1"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestBEDRoundTrip(t *testing.T) {
	t.Parallel()

	genes, _ := ReadGFF(strings.NewReader(prodigalGFF))
	recs := GenesToBED(genes, nil)

	var buf bytes.Buffer
	if err := WriteBED(&buf, recs); err != nil {
		t.Fatalf("WriteBED: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "k141_7\t1\t400\tk141_7_1\t0\t+\n") {
		t.Errorf("unexpected first BED line: %q", buf.String())
	}

	back, err := ReadBED(&buf)
	if err != nil {
		t.Fatalf("ReadBED: %v", err)
	}
	if diff := cmp.Diff(recs, back); diff != "" {
		t.Errorf("BED mismatch (-want +got):\n%s", diff)
	}
}

func TestReadBEDFile_Missing(t *testing.T) {
	t.Parallel()

	recs, err := ReadBEDFile(filepath.Join(t.TempDir(), "none.bed"))
	if err != nil || recs != nil {
		t.Errorf("expected nil, nil for missing file; got %v, %v", recs, err)
	}
}
