// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type handler struct {
	source StatusSource
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	Phase  string `json:"phase"`
	Done   bool   `json:"done"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	st := h.source.Snapshot()
	respondJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		RunID:  st.RunID,
		Phase:  st.Phase,
		Done:   h.source.Done(),
	})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.source.Snapshot())
}

func (h *handler) sample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sample")
	for _, s := range h.source.Snapshot().Samples {
		if s.Name == name {
			respondJSON(w, r, http.StatusOK, s)
			return
		}
	}
	respondError(w, r, http.StatusNotFound, codeNotFound, "unknown sample")
}
