// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package coords converts predictor gene annotations (GeneMark GTF, Prodigal
// GFF3) into BED gene-location files and assigns contig-scoped gene names.
//
// Gene names follow the "<contig>_<ordinal>" convention so that the contig a
// protein came from can be recovered by stripping the final "_" token.
package coords

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Gene is one predicted gene with 1-based inclusive coordinates.
type Gene struct {
	ID     string
	Contig string
	Start  int
	End    int
	Strand string
}

// ContigOf returns the contig part of a "<contig>_<ordinal>" gene name: the
// identifier with its final underscore-delimited token removed. Identifiers
// without an underscore are returned unchanged.
func ContigOf(id string) string {
	if i := strings.LastIndexByte(id, '_'); i > 0 {
		return id[:i]
	}
	return id
}

// featureLine is one tab-separated GTF/GFF feature row.
type featureLine struct {
	seqid  string
	kind   string
	start  int
	end    int
	strand string
	attrs  string
}

func scanFeatures(r io.Reader, fn func(featureLine) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Prodigal appends the translated FASTA after a ##FASTA directive.
		if strings.HasPrefix(line, ">") {
			break
		}
		f := strings.Split(line, "\t")
		if len(f) < 9 {
			return fmt.Errorf("line %d: expected 9 columns, got %d", lineNo, len(f))
		}
		start, err := strconv.Atoi(f[3])
		if err != nil {
			return fmt.Errorf("line %d: start %q: %w", lineNo, f[3], err)
		}
		end, err := strconv.Atoi(f[4])
		if err != nil {
			return fmt.Errorf("line %d: end %q: %w", lineNo, f[4], err)
		}
		if err := fn(featureLine{seqid: f[0], kind: f[2], start: start, end: end, strand: f[6], attrs: f[8]}); err != nil {
			return err
		}
	}
	return sc.Err()
}

// gtfAttr extracts key "value"; from a GTF attribute column.
func gtfAttr(attrs, key string) string {
	for _, part := range strings.Split(attrs, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, key+" ") {
			continue
		}
		return strings.Trim(strings.TrimSpace(part[len(key):]), `"`)
	}
	return ""
}

// gffAttr extracts key=value from a GFF3 attribute column.
func gffAttr(attrs, key string) string {
	for _, part := range strings.Split(attrs, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}

// ReadGTF collapses GTF features into one Gene per transcript (falling back to
// gene_id), spanning every CDS, exon and codon feature of that transcript.
// Genes are returned in order of first appearance.
func ReadGTF(r io.Reader) ([]Gene, error) {
	genes, _, err := readGTF(r)
	return genes, err
}

// GTFAliases maps both gene_id and transcript_id of every GTF gene to the
// transcript-level Gene, so protein headers using either id can be resolved.
func GTFAliases(r io.Reader) (map[string]Gene, []Gene, error) {
	genes, geneIDs, err := readGTF(r)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]Gene, len(genes)*2)
	for _, g := range genes {
		byID[g.ID] = g
	}
	for geneID, transcript := range geneIDs {
		if _, taken := byID[geneID]; !taken {
			byID[geneID] = byID[transcript]
		}
	}
	return byID, genes, nil
}

// readGTF returns the collapsed genes and a gene_id -> transcript_id table.
func readGTF(r io.Reader) ([]Gene, map[string]string, error) {
	index := make(map[string]int)
	geneIDs := make(map[string]string)
	var genes []Gene

	err := scanFeatures(r, func(fl featureLine) error {
		switch fl.kind {
		case "CDS", "exon", "start_codon", "stop_codon":
		default:
			return nil
		}
		geneID := gtfAttr(fl.attrs, "gene_id")
		id := gtfAttr(fl.attrs, "transcript_id")
		if id == "" {
			id = geneID
		}
		if id == "" {
			return nil
		}
		if geneID != "" && geneID != id {
			if _, ok := geneIDs[geneID]; !ok {
				geneIDs[geneID] = id
			}
		}
		if i, ok := index[id]; ok {
			g := &genes[i]
			g.Start = min(g.Start, fl.start)
			g.End = max(g.End, fl.end)
			return nil
		}
		index[id] = len(genes)
		genes = append(genes, Gene{ID: id, Contig: fl.seqid, Start: fl.start, End: fl.end, Strand: fl.strand})
		return nil
	})
	return genes, geneIDs, err
}

// ReadGFF returns one Gene per CDS feature of a Prodigal GFF3 file. Gene IDs
// are renamed from Prodigal's "<contig index>_<ordinal>" to "<contig>_<ordinal>"
// which matches the headers of Prodigal's protein output.
func ReadGFF(r io.Reader) ([]Gene, error) {
	var genes []Gene
	counter := make(map[string]int)

	err := scanFeatures(r, func(fl featureLine) error {
		if fl.kind != "CDS" {
			return nil
		}
		counter[fl.seqid]++
		ordinal := strconv.Itoa(counter[fl.seqid])
		if id := gffAttr(fl.attrs, "ID"); id != "" {
			if i := strings.LastIndexByte(id, '_'); i >= 0 && i < len(id)-1 {
				ordinal = id[i+1:]
			}
		}
		genes = append(genes, Gene{
			ID:     fl.seqid + "_" + ordinal,
			Contig: fl.seqid,
			Start:  fl.start,
			End:    fl.end,
			Strand: fl.strand,
		})
		return nil
	})
	return genes, err
}

// NumberByContig assigns "<contig>_<k>" names to genes, numbering each contig
// from 1 in coordinate order. The returned map is keyed by the original ID.
func NumberByContig(genes []Gene) map[string]string {
	sorted := make([]Gene, len(genes))
	copy(sorted, genes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Contig != sorted[j].Contig {
			return sorted[i].Contig < sorted[j].Contig
		}
		return sorted[i].Start < sorted[j].Start
	})

	names := make(map[string]string, len(sorted))
	counter := make(map[string]int)
	for _, g := range sorted {
		counter[g.Contig]++
		names[g.ID] = g.Contig + "_" + strconv.Itoa(counter[g.Contig])
	}
	return names
}

// ReadGTFFile is ReadGTF on a file path.
func ReadGTFFile(path string) ([]Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	genes, err := ReadGTF(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return genes, nil
}

// ReadGFFFile is ReadGFF on a file path.
func ReadGFFFile(path string) ([]Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	genes, err := ReadGFF(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return genes, nil
}

// GTFAliasesFile is GTFAliases on a file path.
func GTFAliasesFile(path string) (map[string]Gene, []Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	byID, genes, err := GTFAliases(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return byID, genes, nil
}
