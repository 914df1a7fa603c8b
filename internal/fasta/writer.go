// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LineWidth is the sequence wrap width used for files written by genecascade.
const LineWidth = 60

// Write renders records to w, wrapping sequences at width (0 disables wrapping).
func Write(w io.Writer, recs []Record, width int) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if err := writeRecord(bw, r, width); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, r Record, width int) error {
	if _, err := fmt.Fprintf(w, ">%s\n", r.Header()); err != nil {
		return err
	}
	seq := r.Seq
	if width <= 0 {
		width = len(seq)
	}
	for len(seq) > 0 {
		n := width
		if n > len(seq) {
			n = len(seq)
		}
		if _, err := w.Write(seq[:n]); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return nil
}

// WriteFile atomically writes records to path (temp file + rename).
func WriteFile(path string, recs []Record, width int) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Write(w, recs, width)
	})
}

// writeAtomic writes through fill into a temporary sibling of path and
// renames it into place once fully written.
func writeAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
