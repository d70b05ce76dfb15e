// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/onair/internal/logging"
)

var errMissingID = errors.New("missing form field id")

// taskHandler adapts a per-event task to the form-encoded task contract:
// body id=<event id>, plain-text OK or failure.
func (h *Handler) taskHandler(run func(ctx context.Context, eventID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form body", http.StatusBadRequest)
			return
		}
		eventID := strings.TrimSpace(r.PostForm.Get("id"))
		if eventID == "" {
			logging.Ctx(r.Context()).Warn().Err(errMissingID).Str("path", r.URL.Path).Msg("Rejected task request")
			http.Error(w, errMissingID.Error(), http.StatusBadRequest)
			return
		}
		TaskResponse(w, r, run(r.Context(), eventID))
	}
}

// RunJob runs a scheduled job once on demand.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs[chi.URLParam(r, "job")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	TaskResponse(w, r, job.Execute(r.Context()))
}
