// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

/*
Package middleware provides HTTP middleware for the status server.

  - RequestID: assigns or propagates X-Request-ID and stores a request-scoped
    zerolog logger in the context
  - AccessLog: logs method, route, status and duration per request
  - PrometheusMetrics: records genecascade_http_* request metrics labeled by
    the chi route pattern

All middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
