// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// genecascade predicts proteins in genome bins and infers their lineage.
//
// Usage:
//
//	genecascade run  -i genome.fa -o out/ -d nr.dmnd
//	genecascade meta -i bins/ -o out/ -d nr.dmnd --workers 8 --metrics-addr :9464
//	genecascade taxonomy import --taxdump taxdump/
//	genecascade taxonomy lineage 4932
//	genecascade cache check genome.fa
//	genecascade cache restore genome.fa proteins.faa --kind faa
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
