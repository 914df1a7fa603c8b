// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package metrics holds the Prometheus instrumentation shared by the
// prediction cascade, the tool adapters and the batch coordinator.
//
// Metrics are registered on the default registry through promauto and are
// exposed either by the /metrics endpoint (long-running batch with
// --metrics-addr) or written once to a node-exporter textfile at the end of
// a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction cascade
	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_stage_outcomes_total",
			Help: "Prediction stage completions by stage and result",
		},
		[]string{"stage", "result"}, // result: "success", "failure", "skipped"
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genecascade_stage_duration_seconds",
			Help:    "Wall time spent in each prediction stage",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		},
		[]string{"stage"},
	)

	SamplesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_samples_completed_total",
			Help: "Samples that reached a terminal state, by final stage",
		},
		[]string{"final_stage"},
	)

	HybridMergedSequences = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genecascade_hybrid_merged_sequences_total",
			Help: "Secondary-predictor proteins added to primary proteomes by hybrid merge",
		},
	)

	// External tools
	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_tool_invocations_total",
			Help: "External tool invocations by tool and result",
		},
		[]string{"tool", "result"}, // result: "success", "failure", "skipped"
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genecascade_tool_duration_seconds",
			Help:    "Duration of external tool invocations",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
		},
		[]string{"tool"},
	)

	// Content-addressable result cache
	ResultCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"}, // "hit", "miss"
	)

	ResultCacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_result_cache_stores_total",
			Help: "Result cache store attempts by outcome",
		},
		[]string{"result"}, // "committed", "integrity_error", "error"
	)

	// Taxonomy
	TaxonomyLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_taxonomy_lookups_total",
			Help: "Taxid to lineage resolutions by outcome",
		},
		[]string{"result"}, // "cache_hit", "store_hit", "miss", "error"
	)

	ClassificationQueries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genecascade_classification_queries",
			Help:    "Number of protein queries per aligner invocation",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
	)

	// Model catalog
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_catalog_requests_total",
			Help: "Remote model catalog requests by kind and result",
		},
		[]string{"kind", "result"}, // kind: "info", "model"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genecascade_catalog_request_duration_seconds",
			Help:    "Duration of remote model catalog requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genecascade_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Batch
	HarvestedModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genecascade_harvested_models",
			Help: "Self-trained models collected in the shared model directory",
		},
	)

	BatchSamples = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genecascade_batch_samples",
			Help: "Samples in the current batch by state",
		},
		[]string{"state"}, // "pending", "running", "done", "failed"
	)

	// Status server
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genecascade_http_requests_total",
			Help: "Status server requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genecascade_http_request_duration_seconds",
			Help:    "Status server request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genecascade_http_active_requests",
			Help: "Status server requests in flight",
		},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStage records the outcome and duration of one prediction stage.
func RecordStage(stage string, duration time.Duration, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	StageOutcomes.WithLabelValues(stage, result).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordToolInvocation records one external tool invocation.
func RecordToolInvocation(tool string, duration time.Duration, err error) {
	ToolInvocations.WithLabelValues(tool, resultLabel(err)).Inc()
	ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolSkipped records an invocation skipped because its output already existed.
func RecordToolSkipped(tool string) {
	ToolInvocations.WithLabelValues(tool, "skipped").Inc()
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		ResultCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	ResultCacheLookups.WithLabelValues("miss").Inc()
}

// RecordCatalogRequest records one remote catalog request.
func RecordCatalogRequest(kind string, duration time.Duration, err error) {
	CatalogRequests.WithLabelValues(kind, resultLabel(err)).Inc()
	CatalogRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordHTTPRequest records one status server request.
func RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}
