// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Node is one row of an NCBI nodes.dmp file.
type Node struct {
	TaxID  int
	Parent int
	Rank   string
}

// dumpFields splits a "\t|\t" delimited taxdump row.
func dumpFields(line string) []string {
	line = strings.TrimSuffix(strings.TrimRight(line, "\r\n"), "\t|")
	fields := strings.Split(line, "\t|\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func scanDump(r io.Reader, minFields int, fn func(lineNo int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := dumpFields(line)
		if len(fields) < minFields {
			return fmt.Errorf("line %d: expected at least %d fields, got %d", lineNo, minFields, len(fields))
		}
		if err := fn(lineNo, fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ParseNodes streams nodes.dmp rows to fn.
func ParseNodes(r io.Reader, fn func(Node) error) error {
	return scanDump(r, 3, func(lineNo int, f []string) error {
		taxid, err := strconv.Atoi(f[0])
		if err != nil {
			return fmt.Errorf("line %d: taxid %q: %w", lineNo, f[0], err)
		}
		parent, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("line %d: parent %q: %w", lineNo, f[1], err)
		}
		return fn(Node{TaxID: taxid, Parent: parent, Rank: f[2]})
	})
}

// ParseMerged streams merged.dmp (old taxid -> new taxid) rows to fn.
func ParseMerged(r io.Reader, fn func(oldID, newID int) error) error {
	return scanDump(r, 2, func(lineNo int, f []string) error {
		oldID, err := strconv.Atoi(f[0])
		if err != nil {
			return fmt.Errorf("line %d: old taxid %q: %w", lineNo, f[0], err)
		}
		newID, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("line %d: new taxid %q: %w", lineNo, f[1], err)
		}
		return fn(oldID, newID)
	})
}
