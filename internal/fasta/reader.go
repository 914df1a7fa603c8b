// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package fasta reads and writes the nucleotide and protein FASTA files that
// flow between the predictors, the aligner and the result cache.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one FASTA entry. ID is the first whitespace-delimited word of the
// header; Desc holds the remainder.
type Record struct {
	ID   string
	Desc string
	Seq  []byte
}

// Header renders the record header without the leading '>'.
func (r Record) Header() string {
	if r.Desc == "" {
		return r.ID
	}
	return r.ID + " " + r.Desc
}

// ErrMalformed reports sequence data before the first header.
var ErrMalformed = errors.New("malformed FASTA")

// openReader opens path, transparently decompressing ".gz" files.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}

// Scan calls fn for every record in r. Sequence lines are concatenated with
// surrounding whitespace removed. Returning a non-nil error from fn stops the scan.
func Scan(r io.Reader, fn func(Record) error) error {
	br := bufio.NewReaderSize(r, 256*1024)
	var (
		cur  Record
		have bool
	)

	flush := func() error {
		if !have {
			return nil
		}
		return fn(cur)
	}

	for {
		line, err := br.ReadBytes('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) > 0 && line[0] == '>':
			if ferr := flush(); ferr != nil {
				return ferr
			}
			id, desc := splitHeader(string(line[1:]))
			cur = Record{ID: id, Desc: desc}
			have = true
		case len(bytes.TrimSpace(line)) > 0:
			if !have {
				return fmt.Errorf("%w: sequence data before first header", ErrMalformed)
			}
			cur.Seq = append(cur.Seq, bytes.TrimSpace(line)...)
		}

		if eof {
			break
		}
	}
	return flush()
}

func splitHeader(h string) (id, desc string) {
	h = strings.TrimSpace(h)
	if i := strings.IndexAny(h, " \t"); i >= 0 {
		return h[:i], strings.TrimSpace(h[i+1:])
	}
	return h, ""
}

// ScanFile streams the records of a (possibly gzipped) file to fn.
func ScanFile(path string, fn func(Record) error) error {
	rc, err := openReader(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Scan(rc, fn); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// ReadFile loads every record of path into memory.
func ReadFile(path string) ([]Record, error) {
	var recs []Record
	err := ScanFile(path, func(r Record) error {
		recs = append(recs, r)
		return nil
	})
	return recs, err
}
