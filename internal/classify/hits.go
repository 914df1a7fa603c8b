// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package classify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// QueryHits collects the subject taxids reported for one query protein.
type QueryHits struct {
	Query  string
	TaxIDs []int
}

// ParseHits reads a tabular aligner result with the columns
// qseqid, sseqid, pident, evalue, bitscore, staxids. Queries are returned in
// first-seen order. A staxids cell may hold several ids separated by ';'
// and each one counts as a hit. Rows without a usable taxid still register
// their query.
func ParseHits(r io.Reader) ([]QueryHits, error) {
	var out []QueryHits
	index := make(map[string]int)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		query := cols[0]
		i, ok := index[query]
		if !ok {
			i = len(out)
			index[query] = i
			out = append(out, QueryHits{Query: query})
		}
		if len(cols) < 6 {
			continue
		}
		for _, tok := range strings.Split(cols[5], ";") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			id, err := strconv.Atoi(tok)
			if err != nil || id <= 0 {
				continue
			}
			out[i].TaxIDs = append(out[i].TaxIDs, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read hits: %w", err)
	}
	return out, nil
}

// ParseHitsFile is ParseHits over a file.
func ParseHitsFile(path string) ([]QueryHits, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup
	return ParseHits(f)
}
