// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package fasta

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MappingFile is the name of the header rename table written next to a
// cleaned sequence file.
const MappingFile = "mapping.csv"

// CleanResult describes the output of Clean.
type CleanResult struct {
	Path    string
	Mapping string
	Renamed int
	Records int
}

// Clean rewrites the headers of in so that the predictors only ever see the
// first header word, made unique by appending ".0", ".1", ... on collision.
// The cleaned copy keeps the input base name (minus ".gz") inside dir, and an
// "old,new" mapping table is written to dir/mapping.csv.
func Clean(in, dir string) (CleanResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CleanResult{}, err
	}

	res := CleanResult{
		Path:    filepath.Join(dir, strings.TrimSuffix(filepath.Base(in), ".gz")),
		Mapping: filepath.Join(dir, MappingFile),
	}
	if filepath.Clean(res.Path) == filepath.Clean(in) {
		return CleanResult{}, fmt.Errorf("clean %s: output would overwrite input", in)
	}

	mf, err := os.Create(res.Mapping)
	if err != nil {
		return CleanResult{}, err
	}
	defer mf.Close()

	mw := csv.NewWriter(mf)
	if err := mw.Write([]string{"old", "new"}); err != nil {
		return CleanResult{}, err
	}

	seen := make(map[string]struct{})
	err = writeAtomic(res.Path, func(w io.Writer) error {
		var recs []Record
		scanErr := ScanFile(in, func(r Record) error {
			name := uniqueName(r.ID, seen)
			seen[name] = struct{}{}
			if name != r.ID || r.Desc != "" {
				res.Renamed++
			}
			if err := mw.Write([]string{r.Header(), name}); err != nil {
				return err
			}
			recs = append(recs, Record{ID: name, Seq: r.Seq})
			res.Records++
			if len(recs) >= 256 {
				if err := Write(w, recs, LineWidth); err != nil {
					return err
				}
				recs = recs[:0]
			}
			return nil
		})
		if scanErr != nil {
			return scanErr
		}
		return Write(w, recs, LineWidth)
	})
	if err != nil {
		return CleanResult{}, err
	}

	mw.Flush()
	if err := mw.Error(); err != nil {
		return CleanResult{}, err
	}
	return res, nil
}

func uniqueName(base string, seen map[string]struct{}) string {
	name := base
	for i := 0; ; i++ {
		if _, taken := seen[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s.%d", base, i)
	}
}
