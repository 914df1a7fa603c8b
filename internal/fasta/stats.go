// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
)

// HasSequence reports whether path exists and its first record carries at
// least one sequence character on the line following the header. Missing or
// empty files are reported as false without error.
func HasSequence(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return false, sc.Err()
	}
	if !bytes.HasPrefix(sc.Bytes(), []byte(">")) {
		return false, nil
	}
	if !sc.Scan() {
		return false, sc.Err()
	}
	line := bytes.TrimSpace(sc.Bytes())
	return len(line) > 0 && line[0] != '>', nil
}

// Summary describes the content of a FASTA file.
type Summary struct {
	Records  int
	Residues int
}

// Summarize counts records and sequence characters (stop symbols included).
func Summarize(path string) (Summary, error) {
	var s Summary
	err := ScanFile(path, func(r Record) error {
		s.Records++
		s.Residues += len(r.Seq)
		return nil
	})
	return s, err
}

// Subsample returns up to n records chosen uniformly without replacement.
// When recs holds n or fewer records all of them are returned in input order.
func Subsample(recs []Record, n int, rng *rand.Rand) []Record {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	idx := rng.Perm(len(recs))[:n]
	out := make([]Record, n)
	for i, j := range idx {
		out[i] = recs[j]
	}
	return out
}
