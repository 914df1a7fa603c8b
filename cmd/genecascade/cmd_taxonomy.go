// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genecascade/internal/models"
	"github.com/tomtom215/genecascade/internal/taxonomy"
)

// NCBI taxdump file names.
const (
	taxdumpNodes  = "nodes.dmp"
	taxdumpMerged = "merged.dmp"
)

func newTaxonomyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage the local NCBI taxonomy used for lineage lookups",
	}
	cmd.AddCommand(newTaxonomyImportCmd(a), newTaxonomyLineageCmd(a), newTaxonomyInfoCmd(a))
	return cmd
}

func newTaxonomyImportCmd(a *app) *cobra.Command {
	var taxdump string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import nodes.dmp and merged.dmp from an NCBI taxdump directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			nodes, err := os.Open(filepath.Join(taxdump, taxdumpNodes))
			if err != nil {
				return err
			}
			defer nodes.Close()

			var merged io.Reader
			mf, err := os.Open(filepath.Join(taxdump, taxdumpMerged))
			switch {
			case err == nil:
				defer mf.Close()
				merged = mf
			case !errors.Is(err, fs.ErrNotExist):
				return err
			}

			if err := os.MkdirAll(a.cfg.Taxonomy.DBPath, 0o755); err != nil {
				return err
			}
			store, err := taxonomy.OpenStore(taxonomy.StoreConfig{Path: a.cfg.Taxonomy.DBPath})
			if err != nil {
				return err
			}
			defer func() { err = joinClose(err, store) }()

			meta, err := store.Import(cmd.Context(), nodes, merged)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes and %d merged ids into %s\n",
				meta.Nodes, meta.Merged, a.cfg.Taxonomy.DBPath)
			return err
		},
	}
	cmd.Flags().StringVar(&taxdump, "taxdump", "", "directory holding nodes.dmp and optionally merged.dmp (required)")
	_ = cmd.MarkFlagRequired("taxdump")
	return cmd
}

// openReadOnlyStore opens an imported store for lookups.
func openReadOnlyStore(a *app) (*taxonomy.Store, error) {
	store, err := taxonomy.OpenStore(taxonomy.StoreConfig{Path: a.cfg.Taxonomy.DBPath, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w (run 'genecascade taxonomy import' first)", err)
	}
	if _, err := store.Meta(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newTaxonomyLineageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lineage TAXID...",
		Short: "Print the root-to-leaf lineage of taxids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil || id <= 0 {
					return fmt.Errorf("%w: taxid %q", models.ErrInvalidArgument, arg)
				}
				ids = append(ids, id)
			}

			store, err := openReadOnlyStore(a)
			if err != nil {
				return err
			}
			defer func() { err = joinClose(err, store) }()

			resolver := taxonomy.NewResolver(store, a.cfg.Taxonomy.CacheSize)
			out := cmd.OutOrStdout()
			var missing []error
			for _, id := range ids {
				look := resolver.Resolve(cmd.Context(), id)
				if !look.OK() {
					missing = append(missing, fmt.Errorf("taxid %d: %w", id, look.Err()))
					continue
				}
				if _, err := fmt.Fprintf(out, "%d\t%s\n", id, look.Lineage.Join("-")); err != nil {
					return err
				}
			}
			return errors.Join(missing...)
		},
	}
}

func newTaxonomyInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show details of the last taxonomy import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			store, err := openReadOnlyStore(a)
			if err != nil {
				return err
			}
			defer func() { err = joinClose(err, store) }()

			meta, err := store.Meta()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "path:     %s\nimported: %s\nnodes:    %d\nmerged:   %d\n",
				a.cfg.Taxonomy.DBPath, meta.ImportedAt.Format(time.RFC3339), meta.Nodes, meta.Merged)
			return err
		},
	}
}
