// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package services

import (
	"context"
	"errors"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/genecascade/internal/batch"
	"github.com/tomtom215/genecascade/internal/logging"
)

// BatchRunner runs one batch to completion.
type BatchRunner interface {
	Run(ctx context.Context) (*batch.Result, error)
}

// BatchService runs a batch once and then terminates the supervisor tree.
// A batch is never restarted: its outputs are written in place and a
// second attempt would repeat every tool invocation.
type BatchService struct {
	runner BatchRunner
	done   chan struct{}

	mu     sync.Mutex
	result *batch.Result
	err    error
	ran    bool
}

// NewBatchService wraps runner.
func NewBatchService(runner BatchRunner) *BatchService {
	return &BatchService{runner: runner, done: make(chan struct{})}
}

// Serve implements suture.Service.
func (s *BatchService) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return suture.ErrDoNotRestart
	}
	s.ran = true
	s.mu.Unlock()

	res, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.result, s.err = res, err
	s.mu.Unlock()
	close(s.done)

	switch {
	case err == nil:
		logging.Info().Str("run_id", res.RunID).Int("samples", len(res.Outcomes)).
			Int("failed", res.Failed()).Msg("Batch finished")
	case errors.Is(err, context.Canceled):
		logging.Warn().Err(err).Msg("Batch canceled")
	default:
		logging.Error().Err(err).Msg("Batch failed")
	}
	return suture.ErrTerminateSupervisorTree
}

// Done is closed once the batch has returned.
func (s *BatchService) Done() <-chan struct{} {
	return s.done
}

// Result returns the batch result and error. Both are nil until Done is
// closed.
func (s *BatchService) Result() (*batch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// String names the service in supervisor events.
func (s *BatchService) String() string {
	return "batch"
}
