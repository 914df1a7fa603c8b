// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	sampleKey contextKey = "sample"
	stageKey  contextKey = "stage"
	loggerKey contextKey = "logger"
)

// GenerateRunID creates a short identifier for one batch or single-sample run.
func GenerateRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID returns a new context carrying the given run ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext retrieves the run ID from context, or "".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSample returns a new context carrying the sample name.
func ContextWithSample(ctx context.Context, sample string) context.Context {
	return context.WithValue(ctx, sampleKey, sample)
}

// SampleFromContext retrieves the sample name from context, or "".
func SampleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sampleKey).(string); ok {
		return s
	}
	return ""
}

// ContextWithStage returns a new context carrying the prediction stage name.
func ContextWithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context, falling back to the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with run_id, sample and stage fields added when present.
//
//	logging.Ctx(ctx).Info().Msg("Stage finished")
//	// {"level":"info","run_id":"1a2b3c4d","sample":"bin.3","stage":"self_training",...}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)

	lctx := logger.With()
	if id := RunIDFromContext(ctx); id != "" {
		lctx = lctx.Str("run_id", id)
	}
	if s := SampleFromContext(ctx); s != "" {
		lctx = lctx.Str("sample", s)
	}
	if st, ok := ctx.Value(stageKey).(string); ok && st != "" {
		lctx = lctx.Str("stage", st)
	}

	l := lctx.Logger()
	return &l
}
