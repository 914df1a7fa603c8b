// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package batch

import (
	"sync"
	"time"

	"github.com/tomtom215/genecascade/internal/metrics"
	"github.com/tomtom215/genecascade/internal/predict"
)

// Sample states reported by Progress.
const (
	StatePending = "pending"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

var sampleStates = []string{StatePending, StateRunning, StateDone, StateFailed}

// Batch phases.
const (
	PhaseDiscovery = "discovery"
	PhaseTraining  = "self_training"
	PhaseCascade   = "cascade"
	PhaseFinished  = "finished"
)

// SampleStatus is the externally visible state of one sample.
type SampleStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Stage string `json:"stage"`
	Route string `json:"route,omitempty"`
	Error string `json:"error,omitempty"`
}

// Status is a point-in-time copy of the batch progress.
type Status struct {
	RunID     string         `json:"run_id"`
	Phase     string         `json:"phase"`
	Pass      int            `json:"pass"`
	StartedAt time.Time      `json:"started_at"`
	Counts    map[string]int `json:"counts"`
	Samples   []SampleStatus `json:"samples"`
}

// Progress tracks batch state for status reporting. It is safe for
// concurrent use and never touches a Run, so reading it does not wait for a
// running tool.
type Progress struct {
	mu      sync.RWMutex
	runID   string
	phase   string
	pass    int
	started time.Time
	order   []string
	samples map[string]*SampleStatus
}

// NewProgress creates an empty tracker for the batch runID.
func NewProgress(runID string) *Progress {
	return &Progress{
		runID:   runID,
		phase:   PhaseDiscovery,
		started: time.Now(),
		samples: make(map[string]*SampleStatus),
	}
}

func (p *Progress) add(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.samples[name]; ok {
		return
	}
	p.order = append(p.order, name)
	p.samples[name] = &SampleStatus{Name: name, State: StatePending, Stage: predict.StageInit.String()}
	p.publishLocked()
}

func (p *Progress) setPhase(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
}

func (p *Progress) setPass(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pass = n
}

func (p *Progress) running(name string, stage predict.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.samples[name]
	if !ok {
		return
	}
	s.State = StateRunning
	s.Stage = stage.String()
	p.publishLocked()
}

func (p *Progress) finish(o *predict.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.samples[o.Sample]
	if !ok {
		return
	}
	s.Stage = o.Stage.String()
	s.Route = string(o.Route)
	s.Error = o.Error
	if o.Succeeded() {
		s.State = StateDone
	} else {
		s.State = StateFailed
	}
	p.publishLocked()
}

func (p *Progress) publishLocked() {
	counts := p.countsLocked()
	for _, st := range sampleStates {
		metrics.BatchSamples.WithLabelValues(st).Set(float64(counts[st]))
	}
}

func (p *Progress) countsLocked() map[string]int {
	counts := make(map[string]int, len(sampleStates))
	for _, st := range sampleStates {
		counts[st] = 0
	}
	for _, s := range p.samples {
		counts[s.State]++
	}
	return counts
}

// Snapshot returns a copy of the current progress.
func (p *Progress) Snapshot() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Status{
		RunID:     p.runID,
		Phase:     p.phase,
		Pass:      p.pass,
		StartedAt: p.started,
		Counts:    p.countsLocked(),
		Samples:   make([]SampleStatus, 0, len(p.order)),
	}
	for _, name := range p.order {
		st.Samples = append(st.Samples, *p.samples[name])
	}
	return st
}

// Done reports whether every sample reached a terminal state.
func (p *Progress) Done() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.phase != PhaseFinished {
		return false
	}
	for _, s := range p.samples {
		if s.State != StateDone && s.State != StateFailed {
			return false
		}
	}
	return true
}
