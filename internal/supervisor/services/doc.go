// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package services adapts genecascade components to suture.Service.
//
// BatchService runs one batch and then terminates the supervisor tree.
// HTTPServerService translates http.Server's blocking ListenAndServe into
// suture's context-aware Serve.
package services
