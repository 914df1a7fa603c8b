// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/genecascade/internal/config"
	"github.com/tomtom215/genecascade/internal/resultcache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the content-addressed result cache",
	}
	cmd.AddCommand(newCacheCheckCmd(a), newCacheRestoreCmd(a))
	return cmd
}

func openCache(a *app) (*resultcache.Cache, error) {
	dir := a.cfg.Cache.Dir
	if dir == "" {
		dir = config.DefaultCacheDir()
	}
	return resultcache.New(dir)
}

func newCacheCheckCmd(a *app) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "check FASTA...",
		Short: "Report whether predictions are cached for sequence files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(a)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, src := range args {
				ok, err := c.Exists(src)
				if err != nil {
					return err
				}
				state := "absent"
				if ok {
					state = "present"
					if verify {
						if err := c.Verify(src); err != nil {
							state = "corrupt: " + err.Error()
						} else {
							state = "verified"
						}
					}
				}
				if _, err := fmt.Fprintf(out, "%s\t%s\n", src, state); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "re-hash stored artifacts against the manifest")
	return cmd
}

func newCacheRestoreCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "restore FASTA DEST",
		Short: "Copy a cached protein or location file to DEST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := resultcache.ParseKind(kind)
			if err != nil {
				return err
			}
			c, err := openCache(a)
			if err != nil {
				return err
			}
			status, err := c.Restore(args[0], args[1], k)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[1], status)
			return err
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "faa", "artifact to restore: faa or bed")
	return cmd
}
