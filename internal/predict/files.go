// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package predict

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/genecascade/internal/fasta"
	"github.com/tomtom215/genecascade/internal/models"
)

// copyFile copies src to dst via a temporary sibling and rename.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// ensureFile creates an empty file at path if nothing exists there.
func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// PrepareSample points the sample at the sequence the predictors should
// read. With clean set, or for gzip input which the predictors cannot read,
// the headers are rewritten into the work directory first.
func PrepareSample(s models.Sample, clean bool) (models.Sample, *fasta.CleanResult, error) {
	if !clean && !strings.HasSuffix(strings.ToLower(s.Source), ".gz") {
		s.Sequence = s.Source
		return s, nil, nil
	}
	res, err := fasta.Clean(s.Source, s.WorkDir)
	if err != nil {
		return s, nil, err
	}
	s.Sequence = res.Path
	return s, &res, nil
}
