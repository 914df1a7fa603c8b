// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SequenceExtensions are the file suffixes recognised as nucleotide FASTA input.
var SequenceExtensions = []string{".fa", ".fna", ".fasta", ".fas"}

// Sample is one input sequence file processed by a prediction run.
type Sample struct {
	// Name is derived from the file name and is unique within a batch.
	Name string `json:"name"`

	// Source is the sequence file as supplied by the user.
	Source string `json:"source"`

	// Sequence is the file handed to the predictors (Source, or its cleaned copy).
	Sequence string `json:"sequence"`

	// WorkDir holds every intermediate artifact of this sample.
	WorkDir string `json:"work_dir"`
}

// NewSample derives a Sample from its source path.
func NewSample(source, workRoot string) (Sample, error) {
	name := SampleName(source)
	if name == "" {
		return Sample{}, fmt.Errorf("%w: cannot derive sample name from %q", ErrInvalidArgument, source)
	}
	return Sample{
		Name:     name,
		Source:   source,
		Sequence: source,
		WorkDir:  filepath.Join(workRoot, name),
	}, nil
}

// IsSequenceFile reports whether path carries a recognised FASTA suffix,
// optionally gzip compressed.
func IsSequenceFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, ".gz")
	for _, ext := range SequenceExtensions {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return true
		}
	}
	return false
}

// SampleName strips directories and sequence suffixes from path and replaces
// characters that would break pooled query identifiers.
func SampleName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	lower := strings.ToLower(base)
	for _, ext := range SequenceExtensions {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '|', ' ', '\t', '/', '\\':
			return '_'
		}
		return r
	}, base)
}
