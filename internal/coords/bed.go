// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package coords

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BEDRecord is a BED6 line with 0-based half-open coordinates.
type BEDRecord struct {
	Chrom  string
	Start  int
	End    int
	Name   string
	Score  int
	Strand string
}

// BED converts a gene to a BED record named name.
func (g Gene) BED(name string) BEDRecord {
	strand := g.Strand
	if strand != "+" && strand != "-" {
		strand = "."
	}
	return BEDRecord{Chrom: g.Contig, Start: g.Start - 1, End: g.End, Name: name, Strand: strand}
}

// GenesToBED converts genes to BED records. Names are taken from rename when
// present there, otherwise the gene ID is used.
func GenesToBED(genes []Gene, rename map[string]string) []BEDRecord {
	out := make([]BEDRecord, 0, len(genes))
	for _, g := range genes {
		name := g.ID
		if n, ok := rename[g.ID]; ok {
			name = n
		}
		out = append(out, g.BED(name))
	}
	return out
}

// WriteBED renders records as tab-separated BED6.
func WriteBED(w io.Writer, recs []BEDRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%s\t%d\t%s\n", r.Chrom, r.Start, r.End, r.Name, r.Score, r.Strand); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBEDFile writes records to path, creating parent directories.
func WriteBEDFile(path string, recs []BEDRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBED(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadBED parses BED3 to BED6 lines. Track and comment lines are skipped.
func ReadBED(r io.Reader) ([]BEDRecord, error) {
	var out []BEDRecord
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns", lineNo)
		}
		start, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", lineNo, err)
		}
		end, err := strconv.Atoi(f[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: end: %w", lineNo, err)
		}
		rec := BEDRecord{Chrom: f[0], Start: start, End: end, Strand: "."}
		if len(f) > 3 {
			rec.Name = f[3]
		}
		if len(f) > 4 {
			rec.Score, _ = strconv.Atoi(f[4])
		}
		if len(f) > 5 {
			rec.Strand = f[5]
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

// ReadBEDFile is ReadBED on a file path. A missing file yields no records.
func ReadBEDFile(path string) ([]BEDRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := ReadBED(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, nil
}
