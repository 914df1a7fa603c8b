// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package report renders run results for humans and downstream tools: the
// lineage comparison diagram, the lineage table and the batch summary.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tomtom215/genecascade/internal/models"
)

// DefaultWidth is the diagram width when the terminal width is unknown.
const DefaultWidth = 80

const (
	labelModel  = "Model Lng."
	labelShared = "Shared    "
	labelSample = "Bin Lng.  "
	ellipsis    = "..."
)

// CompareLineages returns the length of the common prefix of a and b and
// the prefix itself.
func CompareLineages(a, b models.Lineage) (int, models.Lineage) {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n, a[:n:n].Clone()
}

// TerminalWidth reads COLUMNS and falls back to DefaultWidth.
func TerminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return DefaultWidth
}

// shorten drops the three taxa before the last one and marks the gap.
func shorten(taxa []string) []string {
	out := []string{taxa[0]}
	if len(taxa) > 4 {
		for _, t := range taxa[1 : len(taxa)-3] {
			if t != ellipsis {
				out = append(out, t)
			}
		}
	}
	return append(out, ellipsis, taxa[len(taxa)-1])
}

func exhausted(taxa []string) bool {
	return len(taxa) <= 3 && taxa[1] == ellipsis
}

func strs(l models.Lineage) []string {
	out := make([]string, len(l))
	for i, id := range l {
		out[i] = strconv.Itoa(id)
	}
	return out
}

// RenderLineages draws a two-branch diagram of where the model lineage and
// the sample lineage diverge:
//
//	Model Lng.          4751 4890
//	                   /
//	Shared     1 131567 2759
//	                   \
//	Bin Lng.            33208
//
// Branches are abbreviated first, then the shared root, until both lines fit
// width or nothing more can be elided.
func RenderLineages(w io.Writer, model, sample models.Lineage, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	score, shared := CompareLineages(model, sample)
	joined := strs(shared)
	top := strs(model)[score:]
	bottom := strs(sample)[score:]

	root := labelShared + " " + strings.Join(joined, " ")
	topLine := strings.Join(top, " ")
	bottomLine := strings.Join(bottom, " ")
	tooLong := func(branch string) bool { return len(root)+len(branch) > width }

	for tooLong(topLine) || tooLong(bottomLine) {
		stuck := 0
		for _, b := range []*[]string{&top, &bottom} {
			line := strings.Join(*b, " ")
			if !tooLong(line) || len(*b) < 3 || exhausted(*b) {
				stuck++
				continue
			}
			*b = shorten(*b)
		}
		topLine = strings.Join(top, " ")
		bottomLine = strings.Join(bottom, " ")
		if stuck >= 2 {
			break
		}
	}

	for tooLong(topLine) || tooLong(bottomLine) {
		stuck := 0
		for _, branch := range []string{topLine, bottomLine} {
			if !tooLong(branch) || len(joined) < 3 || exhausted(joined) {
				stuck++
				continue
			}
			joined = shorten(joined)
			root = labelShared + " " + strings.Join(joined, " ")
		}
		if stuck >= 1 {
			break
		}
	}

	pad := strings.Repeat(" ", max(0, len(root)-len(labelModel)))
	indent := strings.Repeat(" ", len(root))

	var b strings.Builder
	b.WriteString("\nInferred lineage compared to the model lineage:\n")
	if topLine != "" {
		fmt.Fprintf(&b, "%s%s  %s\n%s/\n", labelModel, pad, topLine, indent)
	} else {
		fmt.Fprintf(&b, "%s\n\n", labelModel)
	}
	b.WriteString(root + "\n")
	if bottomLine != "" {
		fmt.Fprintf(&b, "%s\\\n%s%s  %s\n", indent, labelSample, pad, bottomLine)
	} else {
		fmt.Fprintf(&b, "\n%s\n", labelSample)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// LineageDiagram is RenderLineages into a string.
func LineageDiagram(model, sample models.Lineage, width int) string {
	var b strings.Builder
	_ = RenderLineages(&b, model, sample, width)
	return b.String()
}
