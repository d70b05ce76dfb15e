// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/onair/internal/playcount"
)

const (
	defaultTopN = 40
	maxTopN     = 500
)

// TopPlayCounts handles GET /api/v1/playcounts/top?n=.
func (h *Handler) TopPlayCounts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxTopN {
			rw.BadRequest("n must be an integer between 1 and " + strconv.Itoa(maxTopN))
			return
		}
		n = v
	}

	top, err := h.deps.Counters.TopN(r.Context(), n)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(top, len(top))
}

// ListSnapshots handles GET /api/v1/playcounts/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	batches, err := h.deps.Snapshots.ListBatches(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if batches == nil {
		batches = []playcount.BatchSummary{}
	}
	rw.SuccessList(batches, len(batches))
}

// GetSnapshot handles GET /api/v1/playcounts/snapshots/{batch}.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	batch, err := h.deps.Snapshots.GetBatch(r.Context(), chi.URLParam(r, "batch"))
	if errors.Is(err, playcount.ErrBatchNotFound) {
		rw.NotFound("Snapshot batch not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(batch)
}
