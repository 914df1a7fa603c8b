// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tomtom215/genecascade/internal/models"
)

// Discover lists the sequence files directly inside dir, sorted by name.
// Subdirectories are not searched.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !models.IsSequenceFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// samplesFor derives unique samples from paths. Two files that map to the
// same sample name are rejected.
func samplesFor(paths []string, workRoot string) ([]models.Sample, error) {
	seen := make(map[string]string, len(paths))
	samples := make([]models.Sample, 0, len(paths))
	for _, p := range paths {
		s, err := models.NewSample(p, workRoot)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to sample %q", models.ErrInvalidArgument, prev, p, s.Name)
		}
		seen[s.Name] = p
		samples = append(samples, s)
	}
	return samples, nil
}
