// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

/*
Package api serves batch status and metrics over HTTP using the chi router.

Routes:

	GET /healthz           liveness and current batch phase
	GET /metrics           Prometheus exposition
	GET /status            full batch progress snapshot
	GET /status/{sample}   one sample's state

The /status routes carry CORS headers for configured origins and are rate
limited per client IP.
*/
package api
